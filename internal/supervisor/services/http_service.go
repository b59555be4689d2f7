// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package services

import "context"

// ContextServer matches *api.Server's RunWithContext method.
type ContextServer interface {
	RunWithContext(ctx context.Context) error
}

// HTTPService wraps the HTTP server as a supervised service.
type HTTPService struct {
	server ContextServer
}

// NewHTTPService creates the HTTP service wrapper.
func NewHTTPService(server ContextServer) *HTTPService {
	return &HTTPService{server: server}
}

// Serve implements suture.Service. The server listens until cancellation,
// then drains in-flight requests before returning.
func (h *HTTPService) Serve(ctx context.Context) error {
	return h.server.RunWithContext(ctx)
}

// String implements fmt.Stringer for logging.
func (h *HTTPService) String() string {
	return "http-server"
}
