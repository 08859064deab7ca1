package sideevent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidecore/side/internal/sideerr"
)

func noopPlain(desc *Description, args ArgVec, priv any, addr uintptr) {}

func TestRegisterRejectsDuplicateTuple(t *testing.T) {
	s := NewState()

	entry := CallbackEntry{Plain: noopPlain, Priv: "p1", Key: 42}

	require.Equal(t, sideerr.OK, Register(s, entry))
	assert.Equal(t, sideerr.Exist, Register(s, entry))
	assert.Equal(t, uint32(1), s.NrCallbacks())
}

func TestRegisterRejectsEmptyEntry(t *testing.T) {
	s := NewState()

	assert.Equal(t, sideerr.Inval, Register(s, CallbackEntry{Priv: "p1", Key: 1}))
}

func TestUnregisterRejectsEmptyEntry(t *testing.T) {
	s := NewState()

	assert.Equal(t, sideerr.Inval, Unregister(s, CallbackEntry{Priv: "p1", Key: 1}))
}

func TestRegisterAllowsSameFuncDifferentKey(t *testing.T) {
	s := NewState()

	require.Equal(t, sideerr.OK, Register(s, CallbackEntry{Plain: noopPlain, Key: 1}))
	require.Equal(t, sideerr.OK, Register(s, CallbackEntry{Plain: noopPlain, Key: 2}))

	assert.Equal(t, uint32(2), s.NrCallbacks())
}

func TestUnregisterRemovesMatchingEntry(t *testing.T) {
	s := NewState()

	entry := CallbackEntry{Plain: noopPlain, Priv: "p1", Key: 7}
	require.Equal(t, sideerr.OK, Register(s, entry))

	require.Equal(t, sideerr.OK, Unregister(s, entry))
	assert.Equal(t, uint32(0), s.NrCallbacks())
	assert.True(t, IsEmptySentinel(s.loadCallbacks()))
}

func TestUnregisterMissingEntryReturnsNoEnt(t *testing.T) {
	s := NewState()

	assert.Equal(t, sideerr.NoEnt, Unregister(s, CallbackEntry{Plain: noopPlain, Key: 1}))
}

func TestUnregisterPreservesRemainingOrder(t *testing.T) {
	s := NewState()

	a := CallbackEntry{Plain: noopPlain, Key: 1}
	b := CallbackEntry{Plain: noopPlain, Key: 2}
	c := CallbackEntry{Plain: noopPlain, Key: 3}

	require.Equal(t, sideerr.OK, Register(s, a))
	require.Equal(t, sideerr.OK, Register(s, b))
	require.Equal(t, sideerr.OK, Register(s, c))

	require.Equal(t, sideerr.OK, Unregister(s, b))

	remaining := s.loadCallbacks()
	require.Len(t, remaining, 2)
	assert.Equal(t, uint64(1), remaining[0].Key)
	assert.Equal(t, uint64(3), remaining[1].Key)
}
