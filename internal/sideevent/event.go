// Package sideevent holds the per-event data the dispatch fast path
// reads: the published, copy-on-write callback array and the atomic
// enabled word, plus the dispatch entry points themselves.
package sideevent

import (
	"sync/atomic"
	"unsafe"
)

// Flags mirrors the event description's flags bitfield. Only Variadic
// is consulted by the core; the rest of the bitfield belongs to the
// out-of-scope type-system layer.
type Flags uint32

const (
	// FlagVariadic marks an event as taking a dynamic/variadic struct
	// argument in addition to the fixed argument vector.
	FlagVariadic Flags = 1 << iota
)

// LogLevel ranks an event's severity, syslog-style. The core never
// consults it; it is metadata carried on the description for tracers,
// same as the opaque argument vector.
type LogLevel int

const (
	LogLevelEmerg LogLevel = iota
	LogLevelAlert
	LogLevelCrit
	LogLevelErr
	LogLevelWarning
	LogLevelNotice
	LogLevelInfo
	LogLevelDebug
)

// ArgVec is the opaque argument vector produced by the (out-of-scope)
// type-system layer. The core never interprets its contents.
type ArgVec any

// VarStruct is the opaque variadic/dynamic struct argument used by the
// *_variadic dispatch entry points.
type VarStruct any

// CallbackFunc is a plain (non-variadic) attached callback.
type CallbackFunc func(desc *Description, args ArgVec, priv any, callerAddr uintptr)

// VariadicCallbackFunc is a variadic attached callback.
type VariadicCallbackFunc func(desc *Description, args ArgVec, v VarStruct, priv any, callerAddr uintptr)

// CallbackEntry is one attached callback. Exactly one of Plain or
// Variadic is set, tagged by the owning event's Flags.Variadic bit.
type CallbackEntry struct {
	Plain    CallbackFunc
	Variadic VariadicCallbackFunc
	Priv     any
	Key      uint64
}

// empty reports whether this is the zero-valued sentinel entry.
func (e CallbackEntry) empty() bool {
	return e.Plain == nil && e.Variadic == nil
}

// emptyCallbacks is the shared, immutable, zero-length callback array
// used as the initial value of every event's callbacks field. Sharing
// it means an event that has never been attached to costs no
// allocation. Its identity (not its contents — it has none) is what
// register/unregister compare against to decide whether a replaced
// array needs releasing.
var emptyCallbacks = make([]CallbackEntry, 0)

// IsEmptySentinel reports whether cbs is the shared empty sentinel.
func IsEmptySentinel(cbs []CallbackEntry) bool {
	return len(cbs) == 0 && unsafe.SliceData(cbs) == unsafe.SliceData(emptyCallbacks)
}

const reservedBits = 8

const (
	enabledUserEventBit uint64 = 1 << 63
	enabledPtraceBit    uint64 = 1 << 62
	// privateRefMask covers the low (64-reservedBits) bits: the
	// reference count of attached private (non-kernel) callbacks.
	privateRefMask uint64 = (uint64(1) << (64 - reservedBits)) - 1
)

// EnabledWord is the word-sized atomic bitmask described by the data
// model: the high 8 bits are owned by external (kernel) tracers and may
// change concurrently with core updates, so every core mutation must be
// an atomic read-modify-write restricted to the low bits.
type EnabledWord struct {
	bits atomic.Uint64
}

// Load returns the raw word, high bits included.
func (w *EnabledWord) Load() uint64 { return w.bits.Load() }

// UserEvent reports whether the kernel user-event bit is set.
func (w *EnabledWord) UserEvent() bool { return w.bits.Load()&enabledUserEventBit != 0 }

// Ptrace reports whether the ptrace bit is set.
func (w *EnabledWord) Ptrace() bool { return w.bits.Load()&enabledPtraceBit != 0 }

// PrivateRefCount returns the low-bits reference count of attached
// private callbacks.
func (w *EnabledWord) PrivateRefCount() uint64 { return w.bits.Load() & privateRefMask }

// incPrivate atomically increments the private refcount by one,
// touching only the low bits.
func (w *EnabledWord) incPrivate() { w.bits.Add(1) }

// decPrivate atomically decrements the private refcount by one,
// touching only the low bits.
func (w *EnabledWord) decPrivate() { w.bits.Add(^uint64(0)) }

// Description is the opaque, externally-produced event description the
// core treats as a record carrying flags and a back-reference to the
// per-event state. Lifetime: owned by whoever registered the batch.
type Description struct {
	Name     string
	LogLevel LogLevel
	Flags    Flags
	State    *State
}

// Variadic reports whether this event takes a dynamic struct argument.
func (d *Description) Variadic() bool { return d.Flags&FlagVariadic != 0 }

// State is the version-0 event state record consulted on every call.
// Any future version aborts the process: it signals a forward
// incompatible producer this build does not understand.
type State struct {
	version     atomic.Uint32
	nrCallbacks atomic.Uint32
	enabled     EnabledWord
	callbacks   atomic.Pointer[[]CallbackEntry]
	desc        *Description
}

// NewState creates a version-0 event state with no attached callbacks.
func NewState() *State {
	s := &State{}
	s.callbacks.Store(&emptyCallbacks)

	return s
}

// NewStateWithVersion creates a state record reporting the given ABI
// version instead of 0. A real producer always emits version 0; this
// exists so a mismatched-tooling scenario (a producer built against a
// newer, forward-incompatible ABI) can be exercised deliberately
// instead of only happening by accident.
func NewStateWithVersion(version uint32) *State {
	s := NewState()
	s.version.Store(version)

	return s
}

// Version returns the ABI version of this state record. Dispatch must
// abort if this is ever non-zero.
func (s *State) Version() uint32 { return s.version.Load() }

// NrCallbacks returns the number of attached callbacks, excluding the
// (implicit, in this Go port) terminator.
func (s *State) NrCallbacks() uint32 { return s.nrCallbacks.Load() }

// Enabled exposes the atomic enabled word for this event.
func (s *State) Enabled() *EnabledWord { return &s.enabled }

// Desc returns the owning event description.
func (s *State) Desc() *Description { return s.desc }

// SetDesc wires the back-reference from state to description. Called
// once at registration time.
func (s *State) SetDesc(desc *Description) { s.desc = desc }

// loadCallbacks performs the RCU-dereferencing load of the published
// callback array.
func (s *State) loadCallbacks() []CallbackEntry {
	return *s.callbacks.Load()
}

// publish installs a new callback array. Callers must already hold the
// event lock and must wait a grace period before any reference to the
// previous array is considered safe to drop.
func (s *State) publish(cbs []CallbackEntry) {
	s.callbacks.Store(&cbs)
}

// Clear resets state to its zero-callback form without waiting a
// grace period: used when an entire event batch is unregistered, at
// which point the batch is unreachable by contract and no reader can
// still be walking its arrays.
func (s *State) Clear() {
	refs := s.enabled.PrivateRefCount()
	for i := uint64(0); i < refs; i++ {
		s.enabled.decPrivate()
	}

	s.nrCallbacks.Store(0)
	s.publish(emptyCallbacks)
}
