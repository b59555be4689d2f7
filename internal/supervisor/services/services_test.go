// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package services

import (
	"context"
	"errors"
	"testing"
)

func TestRunnerDelegates(t *testing.T) {
	want := errors.New("loop finished")
	r := NewRunner("test-loop", func(ctx context.Context) error {
		return want
	})

	if got := r.Serve(context.Background()); !errors.Is(got, want) {
		t.Errorf("Expected delegated error, got %v", got)
	}
	if r.String() != "test-loop" {
		t.Errorf("Expected name test-loop, got %s", r.String())
	}
}

func TestRunnerStopsOnCancel(t *testing.T) {
	r := NewRunner("waiter", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := r.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

type fakeRunWithContext struct {
	called bool
}

func (f *fakeRunWithContext) RunWithContext(ctx context.Context) error {
	f.called = true
	return ctx.Err()
}

func TestWrappersDelegate(t *testing.T) {
	hub := &fakeRunWithContext{}
	if err := NewWebSocketHubService(hub).Serve(context.Background()); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if !hub.called {
		t.Error("Expected hub RunWithContext to be called")
	}

	srv := &fakeRunWithContext{}
	if err := NewHTTPService(srv).Serve(context.Background()); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if !srv.called {
		t.Error("Expected server RunWithContext to be called")
	}
}
