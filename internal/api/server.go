// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/varko/chainwatch/internal/config"
	"github.com/varko/chainwatch/internal/logging"
)

// Server wraps the HTTP listener with supervised lifecycle semantics.
type Server struct {
	srv *http.Server
}

// NewServer creates the listener from config. WriteTimeout is left
// unset because /ws connections are long-lived.
func NewServer(cfg config.ServerConfig, handler http.Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       cfg.Timeout,
		},
	}
}

// RunWithContext serves until ctx is canceled, then drains in-flight
// requests with a bounded grace period.
func (s *Server) RunWithContext(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	logging.Info().Str("addr", s.srv.Addr).Msg("http server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("http server shutdown incomplete, forcing close")
		_ = s.srv.Close()
	}
	<-errCh

	logging.Info().Str("component", "http-server").Msg("http server stopped")
	return ctx.Err()
}
