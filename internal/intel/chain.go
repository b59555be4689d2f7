// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package intel

import (
	"time"

	"github.com/goccy/go-json"
)

// ChainUpdate is a wormhole-chain topology snapshot from the mapper.
// The payload is opaque to Chainwatch: every update overwrites the previous
// snapshot wholesale and is always forwarded to chain subscribers - any
// topology change is operationally relevant.
type ChainUpdate struct {
	ChainID string `json:"chain_id"`

	// Payload is the raw mapper snapshot (systems, connections, signatures).
	Payload json.RawMessage `json:"payload"`

	UpdatedAt time.Time `json:"updated_at"`
}
