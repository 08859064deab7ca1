// Package side is a user-space software instrumentation core: it lets
// an application declare named instrumentation events and lets one or
// more independent tracers attach callbacks invoked whenever such an
// event fires, plus a state-dump request/notification machine through
// which a producer replays its current state as a burst of synthetic
// event calls.
//
// The event type system, argument encoding, static declaration macros
// and on-kernel "user events"/ptrace wiring are external collaborators;
// this package only passes an opaque argument vector and variadic
// struct through to attached callbacks.
package side

import "github.com/sidecore/side/internal/sideerr"

// Error is the stable error contract: a flat enum, never wrapped,
// compared by value. Values are part of the wire-visible ABI and must
// never be renumbered.
type Error = sideerr.Error

// The error enum values, re-exported from internal/sideerr so every
// internal package and the root facade share one numbering without an
// import cycle back to this package.
const (
	OK      = sideerr.OK
	Inval   = sideerr.Inval
	Exist   = sideerr.Exist
	NoMem   = sideerr.NoMem
	NoEnt   = sideerr.NoEnt
	Exiting = sideerr.Exiting
)
