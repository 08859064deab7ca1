package sideevent

import (
	"runtime"

	"github.com/sidecore/side/internal/keyalloc"
)

// MatchAll is the dispatch key used by the plain Call/CallVariadic
// entry points: it matches every attached callback regardless of the
// key the callback itself registered with.
const MatchAll = keyalloc.MatchAll

// CallerPC returns the program counter of whoever called the exported
// wrapper invoking it, giving tracers a coarse identifier for the
// instrumentation site. It must be called directly from a wrapper
// exactly one frame above the producer (the skip count of 3 covers
// runtime.Callers, CallerPC, and the wrapper itself); the result is
// threaded through dispatch as the callbacks' caller address.
func CallerPC() uintptr {
	var pcs [1]uintptr

	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return 0
	}

	return pcs[0]
}

// matchesKey reports whether an attached callback registered with
// cbKey should fire for a dispatch carrying dispatchKey: either side
// being MatchAll matches everything.
func matchesKey(dispatchKey, cbKey uint64) bool {
	return dispatchKey == MatchAll || cbKey == MatchAll || cbKey == dispatchKey
}

// dispatch is the shared fast-path body for both the plain and
// variadic entry points: no heap allocation, no blocking, no lock
// acquisition. Version and variadic-flag mismatches are hard
// invariants that abort the process.
func dispatch(s *State, desc *Description, key uint64, variadic bool, addr uintptr, run func(cb CallbackEntry, addr uintptr)) {
	if s.Version() != 0 {
		abort("sideevent: event state version mismatch (forward-incompatible producer)")
	}

	if desc.Variadic() != variadic {
		abort("sideevent: variadic/plain dispatch entry point mismatch")
	}

	enabled := s.enabled.Load()

	if enabled&enabledUserEventBit != 0 && matchesKey(key, keyalloc.UserEvent) {
		userEventHook(desc, addr)
	}

	if enabled&enabledPtraceBit != 0 && matchesKey(key, keyalloc.Ptrace) {
		ptraceHook(desc, addr)
	}

	if enabled&privateRefMask == 0 {
		// Nothing is attached: the published array is the empty
		// sentinel, so walking it would be a no-op anyway. Skipping it
		// is a pure performance short-circuit, not a behavior change.
		return
	}

	g := eventDomain.ReadLock()

	for _, cb := range s.loadCallbacks() {
		if cb.empty() {
			continue
		}

		if !matchesKey(key, cb.Key) {
			continue
		}

		run(cb, addr)
	}

	eventDomain.ReadUnlock(g)
}

// Call is the plain dispatch fast path, always dispatched with
// MatchAll. addr is the producer's call-site PC, captured by the
// exported wrapper via CallerPC; zero when unavailable.
func Call(s *State, desc *Description, args ArgVec, addr uintptr) {
	dispatch(s, desc, MatchAll, false, addr, func(cb CallbackEntry, addr uintptr) {
		if cb.Plain != nil {
			cb.Plain(desc, args, cb.Priv, addr)
		}
	})
}

// CallVariadic is the variadic dispatch fast path, always dispatched
// with MatchAll.
func CallVariadic(s *State, desc *Description, args ArgVec, v VarStruct, addr uintptr) {
	dispatch(s, desc, MatchAll, true, addr, func(cb CallbackEntry, addr uintptr) {
		if cb.Variadic != nil {
			cb.Variadic(desc, args, v, cb.Priv, addr)
		}
	})
}

// StatedumpCall dispatches with a dispatch key scoped to the current
// state-dump request. key is dereferenced once to obtain the dispatch
// key; its validity ends when this call returns.
func StatedumpCall(s *State, desc *Description, args ArgVec, key *uint64, addr uintptr) {
	dispatch(s, desc, *key, false, addr, func(cb CallbackEntry, addr uintptr) {
		if cb.Plain != nil {
			cb.Plain(desc, args, cb.Priv, addr)
		}
	})
}

// StatedumpCallVariadic is the variadic counterpart of StatedumpCall.
func StatedumpCallVariadic(s *State, desc *Description, args ArgVec, v VarStruct, key *uint64, addr uintptr) {
	dispatch(s, desc, *key, true, addr, func(cb CallbackEntry, addr uintptr) {
		if cb.Variadic != nil {
			cb.Variadic(desc, args, v, cb.Priv, addr)
		}
	})
}

// userEventHook is the stub boundary to the Linux user_events kernel
// ABI. The core treats it as an external tracer; a real build wires
// this to a cgo or raw-syscall backend. Kept as a no-op hook so the
// dispatch fast path has a stable call site to patch.
//
//go:noinline
func userEventHook(desc *Description, callerAddr uintptr) {
	_ = desc
	_ = callerAddr
}

// ptraceHook exists solely as a debugger breakpoint site; it must stay
// a distinct, non-inlined symbol.
//
//go:noinline
func ptraceHook(desc *Description, callerAddr uintptr) {
	_ = desc
	_ = callerAddr
}
