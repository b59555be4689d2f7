// Chainwatch - EVE Online Intelligence Cache and Event Coordination
// Copyright 2026 Chainwatch Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/varko/chainwatch

package intel

import (
	"fmt"
	"strconv"
	"strings"
)

// ScopeKind discriminates subscription scopes.
type ScopeKind string

const (
	// ScopeKindGlobal receives every dispatched event.
	ScopeKindGlobal ScopeKind = "global"

	// ScopeKindCharacter receives threat and vetting events for one character.
	ScopeKindCharacter ScopeKind = "character"

	// ScopeKindSystem receives activity spike events for one solar system.
	ScopeKindSystem ScopeKind = "system"

	// ScopeKindChain receives topology updates for one wormhole chain.
	ScopeKindChain ScopeKind = "chain"
)

// Scope is a subscription filter. It is immutable after creation; only the
// zero-value fields irrelevant to Kind are unset.
type Scope struct {
	Kind        ScopeKind `json:"kind"`
	CharacterID int64     `json:"character_id,omitempty"`
	SystemID    int64     `json:"system_id,omitempty"`
	ChainID     string    `json:"chain_id,omitempty"`
}

// GlobalScope matches every event.
func GlobalScope() Scope {
	return Scope{Kind: ScopeKindGlobal}
}

// CharacterScope matches events about the given character.
func CharacterScope(characterID int64) Scope {
	return Scope{Kind: ScopeKindCharacter, CharacterID: characterID}
}

// SystemScope matches events about the given solar system.
func SystemScope(systemID int64) Scope {
	return Scope{Kind: ScopeKindSystem, SystemID: systemID}
}

// ChainScope matches events about the given wormhole chain.
func ChainScope(chainID string) Scope {
	return Scope{Kind: ScopeKindChain, ChainID: chainID}
}

// Key returns the canonical string form used for scope indexing and for the
// WebSocket subscribe protocol: "global", "character:92508734",
// "system:31000005", "chain:home".
func (s Scope) Key() string {
	switch s.Kind {
	case ScopeKindCharacter:
		return fmt.Sprintf("character:%d", s.CharacterID)
	case ScopeKindSystem:
		return fmt.Sprintf("system:%d", s.SystemID)
	case ScopeKindChain:
		return "chain:" + s.ChainID
	default:
		return string(ScopeKindGlobal)
	}
}

// String implements fmt.Stringer.
func (s Scope) String() string { return s.Key() }

// ParseScope parses the canonical Key() form back into a Scope.
func ParseScope(raw string) (Scope, error) {
	if raw == string(ScopeKindGlobal) {
		return GlobalScope(), nil
	}

	kind, rest, found := strings.Cut(raw, ":")
	if !found || rest == "" {
		return Scope{}, fmt.Errorf("invalid scope %q", raw)
	}

	switch ScopeKind(kind) {
	case ScopeKindCharacter:
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			return Scope{}, fmt.Errorf("invalid character scope %q", raw)
		}
		return CharacterScope(id), nil
	case ScopeKindSystem:
		id, err := strconv.ParseInt(rest, 10, 64)
		if err != nil || id <= 0 {
			return Scope{}, fmt.Errorf("invalid system scope %q", raw)
		}
		return SystemScope(id), nil
	case ScopeKindChain:
		return ChainScope(rest), nil
	default:
		return Scope{}, fmt.Errorf("unknown scope kind %q", kind)
	}
}
