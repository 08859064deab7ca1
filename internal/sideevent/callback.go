package sideevent

import (
	"math"
	"reflect"

	"github.com/sidecore/side/internal/rcu"
	"github.com/sidecore/side/internal/sideerr"
)

// eventDomain is the event-dispatch grace-period domain: every
// dispatch walks the published callback array inside a read-side
// section on it, and every register/unregister waits a grace period on
// it before dropping the replaced array. It is a process singleton;
// the state-dump list lives on its own separate domain so a slow
// producer callback can never stall registration here.
var eventDomain = rcu.NewDomain()

// Domain returns the event-dispatch RCU domain.
func Domain() *rcu.Domain {
	return eventDomain
}

// funcPointer extracts the code pointer of a func value for identity
// comparison. Func values are not comparable in Go except to nil, so
// duplicate-tuple detection resolves identity through the runtime
// pointer the same way a reflection-based function registry does.
func funcPointer(fn any) uintptr {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.IsNil() {
		return 0
	}

	return v.Pointer()
}

// sameCallback reports whether two entries are the same
// (function, priv, key) tuple: the duplicate-registration check the
// core runs under the event lock.
func sameCallback(a, b CallbackEntry) bool {
	if a.Key != b.Key || a.Priv != b.Priv {
		return false
	}

	if a.Plain != nil || b.Plain != nil {
		return funcPointer(a.Plain) == funcPointer(b.Plain)
	}

	return funcPointer(a.Variadic) == funcPointer(b.Variadic)
}

// Register appends entry to s's published callback array, rejecting an
// exact duplicate tuple. Callers must hold the event lock. The old
// array is released only after a grace period, so any in-flight reader
// that loaded the previous array keeps seeing a consistent view.
func Register(s *State, entry CallbackEntry) sideerr.Error {
	if entry.Plain == nil && entry.Variadic == nil {
		return sideerr.Inval
	}

	if s.NrCallbacks() == math.MaxUint32 {
		return sideerr.Inval
	}

	old := s.loadCallbacks()

	for _, existing := range old {
		if sameCallback(existing, entry) {
			return sideerr.Exist
		}
	}

	next := make([]CallbackEntry, len(old)+1)
	copy(next, old)
	next[len(old)] = entry

	s.publish(next)
	eventDomain.Synchronize()

	if s.nrCallbacks.Add(1) == 1 {
		s.enabled.incPrivate()
	}

	return sideerr.OK
}

// Unregister removes the first entry matching target's (function, priv,
// key) tuple from s's published callback array. Callers must hold the
// event lock. Set exactly one of target.Plain or target.Variadic,
// whichever matches the event's kind.
func Unregister(s *State, target CallbackEntry) sideerr.Error {
	if target.Plain == nil && target.Variadic == nil {
		return sideerr.Inval
	}

	old := s.loadCallbacks()

	idx := -1

	for i, existing := range old {
		if sameCallback(existing, target) {
			idx = i
			break
		}
	}

	if idx < 0 {
		return sideerr.NoEnt
	}

	var next []CallbackEntry
	if len(old) == 1 {
		next = emptyCallbacks
	} else {
		next = make([]CallbackEntry, 0, len(old)-1)
		next = append(next, old[:idx]...)
		next = append(next, old[idx+1:]...)
	}

	s.publish(next)
	eventDomain.Synchronize()

	if s.nrCallbacks.Add(^uint32(0)) == 0 {
		s.enabled.decPrivate()
	}

	return sideerr.OK
}
