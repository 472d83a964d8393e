package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbidlack/proxhy-go/pkg/proto"
	"github.com/kbidlack/proxhy-go/pkg/proto/state"
)

func noopHandler(context.Context, *Engine, *proto.Buffer) error { return nil }

func TestResolveUnregisteredReturnsNil(t *testing.T) {
	tbl := NewTable()
	regs := tbl.Resolve(state.ServerBound, state.Play, 0x00)
	assert.Nil(t, regs)
}

func TestRegisterAppendsInOrder(t *testing.T) {
	tbl := NewTable()
	tbl.Register(state.ClientBound, state.Play, 0x08, false, false, noopHandler)
	tbl.Register(state.ClientBound, state.Play, 0x08, true, false, noopHandler)

	regs := tbl.Resolve(state.ClientBound, state.Play, 0x08)
	require.Len(t, regs, 2)
	assert.False(t, regs[0].blocking)
	assert.True(t, regs[1].blocking)
}

func TestRegisterOverrideClearsPriorRegistrations(t *testing.T) {
	tbl := NewTable()
	tbl.Register(state.ServerBound, state.Play, 0x03, false, false, noopHandler)
	tbl.Register(state.ServerBound, state.Play, 0x03, true, true, noopHandler)

	regs := tbl.Resolve(state.ServerBound, state.Play, 0x03)
	require.Len(t, regs, 1)
	assert.True(t, regs[0].blocking)
}

func TestResolveDoesNotLeakInternalSlice(t *testing.T) {
	tbl := NewTable()
	tbl.Register(state.ClientBound, state.Play, 0x01, false, false, noopHandler)

	regs := tbl.Resolve(state.ClientBound, state.Play, 0x01)
	regs[0].blocking = true

	again := tbl.Resolve(state.ClientBound, state.Play, 0x01)
	assert.False(t, again[0].blocking, "Resolve must return a copy, not the table's own backing slice")
}

func TestMergeCombinesTablesWithoutMutatingSource(t *testing.T) {
	a := NewTable()
	a.Register(state.ClientBound, state.Play, 0x20, false, false, noopHandler)

	b := NewTable()
	b.Register(state.ClientBound, state.Play, 0x20, false, false, noopHandler)
	b.Register(state.ClientBound, state.Play, 0x21, true, false, noopHandler)

	a.Merge(b)

	assert.Len(t, a.Resolve(state.ClientBound, state.Play, 0x20), 2)
	assert.Len(t, a.Resolve(state.ClientBound, state.Play, 0x21), 1)
	assert.Len(t, b.Resolve(state.ClientBound, state.Play, 0x20), 1, "merge must not mutate the source table")
}

func TestDifferentStatesAreIsolated(t *testing.T) {
	tbl := NewTable()
	tbl.Register(state.ServerBound, state.Login, 0x00, true, false, noopHandler)

	assert.Len(t, tbl.Resolve(state.ServerBound, state.Login, 0x00), 1)
	assert.Nil(t, tbl.Resolve(state.ServerBound, state.Play, 0x00))
	assert.Nil(t, tbl.Resolve(state.ClientBound, state.Login, 0x00))
}
