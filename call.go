package side

import "github.com/sidecore/side/internal/sideevent"

// Call dispatches desc's plain attached callbacks against args with
// dispatch key MatchAll. The fast path: no heap allocation, no
// blocking, no lock acquisition. Lazily initializes the package on
// first use; returns silently once Exit has run.
func Call(desc *EventDescription, args ArgVec) {
	if defaultCore.finalized.Load() {
		return
	}

	defaultCore.init()
	sideevent.Call(desc.State, desc, args, sideevent.CallerPC())
}

// CallVariadic is the variadic counterpart of Call.
func CallVariadic(desc *EventDescription, args ArgVec, v VarStruct) {
	if defaultCore.finalized.Load() {
		return
	}

	defaultCore.init()
	sideevent.CallVariadic(desc.State, desc, args, v, sideevent.CallerPC())
}

// StatedumpCall dispatches desc scoped to a state-dump request key,
// read once from key. Used by state-dump producer callbacks to
// synthesize calls carrying the requesting tracer's key.
func StatedumpCall(desc *EventDescription, args ArgVec, key *uint64) {
	if defaultCore.finalized.Load() {
		return
	}

	defaultCore.init()
	sideevent.StatedumpCall(desc.State, desc, args, key, sideevent.CallerPC())
}

// StatedumpCallVariadic is the variadic counterpart of StatedumpCall.
func StatedumpCallVariadic(desc *EventDescription, args ArgVec, v VarStruct, key *uint64) {
	if defaultCore.finalized.Load() {
		return
	}

	defaultCore.init()
	sideevent.StatedumpCallVariadic(desc.State, desc, args, v, key, sideevent.CallerPC())
}
