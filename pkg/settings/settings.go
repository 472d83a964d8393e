// Package settings implements the PROXHY|Settings plugin channel: a thin
// (path, old, new) change-triple carrier. BuildTable decodes the channel on
// the owner's session and mirrors each change into a Store; no other
// package reads that Store. Grounded on
// broadcasting/settings.py's BroadcastSettings and core/settings.py's
// generic settings-change plumbing; deliberately kept generic rather than
// hard-coding any particular server's settings, since spec.md §1 scopes
// this proxy as server-agnostic.
package settings

import (
	"encoding/json"
)

// Channel is the plugin-message channel name this settings protocol rides
// on, carried as ordinary 0x3F plugin-message packets per spec.md §6.
const Channel = "PROXHY|Settings"

// Change is one (path, old, new) settings mutation.
type Change struct {
	Path string      `json:"path"`
	Old  interface{} `json:"old"`
	New  interface{} `json:"new"`
}

// Store holds the current value at each settings path and notifies
// subscribers of changes.
type Store struct {
	values      map[string]interface{}
	subscribers []func(Change)
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{values: make(map[string]interface{})}
}

// Get returns the current value at path, or nil if unset.
func (s *Store) Get(path string) interface{} {
	return s.values[path]
}

// Set updates path and notifies subscribers if the value actually changed.
func (s *Store) Set(path string, value interface{}) {
	old := s.values[path]
	if old == value {
		return
	}
	s.values[path] = value
	change := Change{Path: path, Old: old, New: value}
	for _, fn := range s.subscribers {
		fn(change)
	}
}

// Subscribe registers fn to be called on every future Set that changes a
// value.
func (s *Store) Subscribe(fn func(Change)) {
	s.subscribers = append(s.subscribers, fn)
}

// EncodeChange marshals a Change as the plugin-message payload body (the
// channel name itself is carried by the surrounding 0x3F packet, per
// spec.md §6).
func EncodeChange(c Change) ([]byte, error) {
	return json.Marshal(c)
}

// DecodeChange parses a plugin-message payload body into a Change.
func DecodeChange(payload []byte) (Change, error) {
	var c Change
	err := json.Unmarshal(payload, &c)
	return c, err
}
