package sideevent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEmptySentinelOnFreshState(t *testing.T) {
	s := NewState()
	assert.True(t, IsEmptySentinel(s.loadCallbacks()))
}

func TestEnabledWordPrivateRefCounting(t *testing.T) {
	var w EnabledWord

	assert.Equal(t, uint64(0), w.PrivateRefCount())

	w.incPrivate()
	w.incPrivate()
	assert.Equal(t, uint64(2), w.PrivateRefCount())

	w.decPrivate()
	assert.Equal(t, uint64(1), w.PrivateRefCount())
}

func TestEnabledWordHighBitsIndependentOfPrivateRefcount(t *testing.T) {
	var w EnabledWord

	w.bits.Store(enabledUserEventBit | enabledPtraceBit)
	assert.True(t, w.UserEvent())
	assert.True(t, w.Ptrace())
	assert.Equal(t, uint64(0), w.PrivateRefCount())

	w.incPrivate()
	assert.True(t, w.UserEvent(), "incrementing the private refcount must not touch reserved bits")
	assert.True(t, w.Ptrace())
	assert.Equal(t, uint64(1), w.PrivateRefCount())
}

func TestDescriptionVariadicFlag(t *testing.T) {
	plain := &Description{Flags: 0}
	assert.False(t, plain.Variadic())

	variadic := &Description{Flags: FlagVariadic}
	assert.True(t, variadic.Variadic())
}
