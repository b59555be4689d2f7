// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

// Package websocket carries coordinator events to browser and bot clients.
// Each connection is a subscriber endpoint: the coordinator dispatches
// matching events directly into the connection's write pump, and transport
// liveness (pong deadlines, write failures) feeds back into subscription
// cleanup.
package websocket

import (
	"context"
	"sync"

	"github.com/varko/chainwatch/internal/logging"
	"github.com/varko/chainwatch/internal/metrics"
)

// Hub tracks live connections for counting and orderly shutdown. Event
// routing does not pass through the hub; the coordinator delivers to each
// client directly.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	// done is closed when the hub loop exits; pump goroutines select on it
	// so a post-shutdown unregister never blocks.
	done chan struct{}

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client, 16),
		Unregister: make(chan *Client, 16),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
	}
}

// RunWithContext processes registrations until ctx is canceled, then closes
// every remaining connection. Unregister is drained preferentially so a
// disconnect burst cannot back up behind new connections.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority: drain pending unregistrations first.
		select {
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			logging.Info().Str("component", "websocket-hub").Msg("hub stopped")
			return ctx.Err()

		case client := <-h.Register:
			h.addClient(client)

		case client := <-h.Unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WSClientsConnected.Set(float64(count))
	logging.Debug().Uint64("client_id", client.ID()).Int("clients", count).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	_, present := h.clients[client]
	if present {
		delete(h.clients, client)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if !present {
		return
	}
	client.shutdown()
	metrics.WSClientsConnected.Set(float64(count))
	logging.Debug().Uint64("client_id", client.ID()).Int("clients", count).Msg("websocket client disconnected")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.shutdown()
	}
	metrics.WSClientsConnected.Set(0)
}

// ClientCount reports the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
