// Package session implements the dispatch table and the two-loop session
// engine described in spec.md §4.C/§4.D: a (direction, state, packet_id)
// lookup that resolves to an ordered list of handlers, with pass-through
// forwarding as the default for anything unregistered.
package session

import (
	"context"
	"sync"

	"github.com/kbidlack/proxhy-go/pkg/proto"
	"github.com/kbidlack/proxhy-go/pkg/proto/state"
)

// Handler processes one packet's payload. Returning an error from a
// blocking handler is treated as fatal for the session (per spec.md §7);
// non-blocking handlers log-and-drop their error instead.
type Handler func(ctx context.Context, s *Engine, buf *proto.Buffer) error

type registration struct {
	fn       Handler
	blocking bool
}

type tableKey struct {
	dir   state.Direction
	st    state.State
	id    int32
}

// Table is a (direction, state, packet_id) -> []registration map, built up
// by one or more "plugins" contributing registrations (the Go stand-in for
// the mixin-chain composition described in spec.md §9 — callers register
// directly against a Table instead of relying on inheritance order).
type Table struct {
	mu      sync.RWMutex
	entries map[tableKey][]registration
}

// NewTable returns an empty dispatch table.
func NewTable() *Table {
	return &Table{entries: make(map[tableKey][]registration)}
}

// Register adds fn for (dir, st, id). If override is true, every prior
// registration for that exact key is cleared first, matching spec.md §4.C's
// override semantics ("leaves last" composition).
func (t *Table) Register(dir state.Direction, st state.State, id int32, blocking, override bool, fn Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := tableKey{dir, st, id}
	if override {
		t.entries[key] = nil
	}
	t.entries[key] = append(t.entries[key], registration{fn: fn, blocking: blocking})
}

// Resolve returns the registrations for (dir, st, id), or nil if the packet
// is unhandled and should be forwarded verbatim.
func (t *Table) Resolve(dir state.Direction, st state.State, id int32) []registration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	regs := t.entries[tableKey{dir, st, id}]
	if len(regs) == 0 {
		return nil
	}
	out := make([]registration, len(regs))
	copy(out, regs)
	return out
}

// Merge copies every registration from other into t. Used to compose a
// session-specific table (e.g. the broadcast peer table in pkg/broadcast)
// out of a shared base table plus its own overrides, without needing Go
// type inheritance.
func (t *Table) Merge(other *Table) {
	other.mu.RLock()
	defer other.mu.RUnlock()
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range other.entries {
		cp := make([]registration, len(v))
		copy(cp, v)
		t.entries[k] = append(t.entries[k], cp...)
	}
}
