// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package websocket

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/varko/chainwatch/internal/coordinator"
	"github.com/varko/chainwatch/internal/intel"
	"github.com/varko/chainwatch/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024 // 64 KB; client frames are tiny commands

	// sendBuffer is the per-client event buffer. A consumer that falls
	// this far behind is treated as dead and unsubscribed.
	sendBuffer = 256
)

// ErrClientClosed is returned by Deliver after the client disconnected.
var ErrClientClosed = errors.New("websocket: client closed")

// ErrClientBacklogged is returned by Deliver when the client's send buffer
// is full. Delivery is at-most-once: the event is dropped and the
// coordinator closes the subscription.
var ErrClientBacklogged = errors.New("websocket: client send buffer full")

// EventBroker is the subscription surface the client needs from the
// coordinator. Satisfied by *coordinator.Coordinator.
type EventBroker interface {
	Subscribe(scope intel.Scope, endpoint coordinator.SubscriberEndpoint) (coordinator.SubscriptionID, error)
	Unsubscribe(id coordinator.SubscriptionID) error
}

// clientIDCounter generates unique, monotonically increasing client IDs
// for deterministic ordering in logs and shutdown.
var clientIDCounter atomic.Uint64

// command is an inbound client frame.
type command struct {
	Action string `json:"action"` // "subscribe", "unsubscribe", "ping"
	Scope  string `json:"scope,omitempty"`
}

// Client bridges one WebSocket connection to the coordinator: it holds the
// connection's subscriptions and implements coordinator.SubscriberEndpoint
// so dispatched events flow straight into its write pump.
type Client struct {
	id     uint64
	hub    *Hub
	conn   *websocket.Conn
	broker EventBroker

	send   chan intel.Event
	done   chan struct{}
	closed atomic.Bool

	mu   sync.Mutex
	subs map[string]coordinator.SubscriptionID // scope key -> subscription
}

// NewClient creates a client for an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, broker EventBroker) *Client {
	return &Client{
		id:     clientIDCounter.Add(1),
		hub:    hub,
		conn:   conn,
		broker: broker,
		send:   make(chan intel.Event, sendBuffer),
		done:   make(chan struct{}),
		subs:   make(map[string]coordinator.SubscriptionID),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 { return c.id }

// Deliver implements coordinator.SubscriberEndpoint. Non-blocking: a full
// buffer or a closed client is an error, which makes the coordinator close
// the subscription.
func (c *Client) Deliver(event intel.Event) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	select {
	case c.send <- event:
		return nil
	default:
		return ErrClientBacklogged
	}
}

// Alive implements coordinator.SubscriberEndpoint. It reflects the
// connection's ping/pong liveness: the read pump flips it off when the
// peer stops answering.
func (c *Client) Alive() bool {
	return !c.closed.Load()
}

// AddScope subscribes the connection to a scope. Idempotent per scope key.
func (c *Client) AddScope(scope intel.Scope) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := scope.Key()
	if _, exists := c.subs[key]; exists {
		return nil
	}
	id, err := c.broker.Subscribe(scope, c)
	if err != nil {
		return err
	}
	c.subs[key] = id
	return nil
}

// RemoveScope drops the connection's subscription for a scope key.
func (c *Client) RemoveScope(scopeKey string) error {
	c.mu.Lock()
	id, exists := c.subs[scopeKey]
	if exists {
		delete(c.subs, scopeKey)
	}
	c.mu.Unlock()

	if !exists {
		return coordinator.ErrSubscriptionNotFound
	}
	return c.broker.Unsubscribe(id)
}

// shutdown marks the client dead, tears down its subscriptions, and closes
// the connection. Safe to call more than once.
func (c *Client) shutdown() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	close(c.done)

	c.mu.Lock()
	subs := make([]coordinator.SubscriptionID, 0, len(c.subs))
	for _, id := range c.subs {
		subs = append(subs, id)
	}
	c.subs = make(map[string]coordinator.SubscriptionID)
	c.mu.Unlock()

	for _, id := range subs {
		// The coordinator may already have dropped it on delivery failure.
		_ = c.broker.Unsubscribe(id)
	}

	_ = c.conn.Close()
}

// readPump consumes inbound frames (subscribe/unsubscribe commands) and
// enforces pong-based liveness.
func (c *Client) readPump() {
	defer func() {
		// After the hub loop exits nothing drains Unregister; the done
		// select keeps a disconnect burst during shutdown from blocking
		// here forever.
		select {
		case c.hub.Unregister <- c:
		case <-c.hub.done:
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close")
			}
			return
		}
		c.handleCommand(cmd)
	}
}

func (c *Client) handleCommand(cmd command) {
	switch cmd.Action {
	case "subscribe":
		scope, err := intel.ParseScope(cmd.Scope)
		if err != nil {
			logging.Debug().Err(err).Uint64("client_id", c.id).Msg("rejected subscribe command")
			return
		}
		if err := c.AddScope(scope); err != nil {
			logging.Warn().Err(err).Uint64("client_id", c.id).Str("scope", cmd.Scope).Msg("subscribe failed")
		}
	case "unsubscribe":
		if err := c.RemoveScope(cmd.Scope); err != nil {
			logging.Debug().Err(err).Uint64("client_id", c.id).Str("scope", cmd.Scope).Msg("unsubscribe failed")
		}
	case "ping":
		// Application-level ping; transport pings are handled by gorilla.
	default:
		logging.Debug().Str("action", cmd.Action).Uint64("client_id", c.id).Msg("unknown client command")
	}
}

// writePump pushes dispatched events to the connection and keeps the
// transport alive with periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case event := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("event write failed")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start registers the client with the hub and begins pumping. A client
// arriving after the hub stopped is closed immediately.
func (c *Client) Start() {
	select {
	case c.hub.Register <- c:
	case <-c.hub.done:
		c.shutdown()
		return
	}
	go c.writePump()
	go c.readPump()
}
