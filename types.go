package side

import (
	"github.com/sidecore/side/internal/registry"
	"github.com/sidecore/side/internal/sideevent"
	"github.com/sidecore/side/internal/statedump"
)

// EventDescription is the opaque, externally-produced event
// description: a flags bitfield and a back-reference to the event's
// state. Lifetime is owned by whoever registered the batch.
type EventDescription = sideevent.Description

// Flags mirrors the event description's flags bitfield. Only
// FlagVariadic is consulted by the core.
type Flags = sideevent.Flags

// FlagVariadic marks an event as taking a dynamic/variadic struct
// argument in addition to the fixed argument vector.
const FlagVariadic = sideevent.FlagVariadic

// LogLevel ranks an event's severity, syslog-style. It is attached to
// event descriptions as metadata for tracers; the core never consults it.
type LogLevel = sideevent.LogLevel

const (
	LogLevelEmerg   = sideevent.LogLevelEmerg
	LogLevelAlert   = sideevent.LogLevelAlert
	LogLevelCrit    = sideevent.LogLevelCrit
	LogLevelErr     = sideevent.LogLevelErr
	LogLevelWarning = sideevent.LogLevelWarning
	LogLevelNotice  = sideevent.LogLevelNotice
	LogLevelInfo    = sideevent.LogLevelInfo
	LogLevelDebug   = sideevent.LogLevelDebug
)

// ArgVec is the opaque argument vector produced by the external
// type-system layer; the core never interprets its contents.
type ArgVec = sideevent.ArgVec

// VarStruct is the opaque variadic/dynamic struct argument used by the
// *Variadic dispatch entry points.
type VarStruct = sideevent.VarStruct

// CallbackFunc is a plain (non-variadic) attached callback.
type CallbackFunc = sideevent.CallbackFunc

// VariadicCallbackFunc is a variadic attached callback.
type VariadicCallbackFunc = sideevent.VariadicCallbackFunc

// EventsHandle identifies one registered event batch, returned by
// RegisterEvents and consumed by UnregisterEvents.
type EventsHandle = registry.EventsHandle

// TracerHandle identifies one registered tracer notification
// subscription, returned by EventNotificationRegister.
type TracerHandle = registry.TracerHandle

// NotifyAction tags a tracer notification as an insertion or a
// removal of an event batch.
type NotifyAction = registry.NotifyAction

const (
	InsertEvents = registry.InsertEvents
	RemoveEvents = registry.RemoveEvents
)

// NotificationFunc is a tracer's event-registration notification
// callback, replayed once per registered batch both at registration
// time and as batches come and go afterward.
type NotificationFunc = registry.NotifyFunc

// StatedumpMode selects how a state-dump request handle's pending
// notifications are run.
type StatedumpMode = statedump.Mode

const (
	StatedumpPolling     = statedump.Polling
	StatedumpAgentThread = statedump.AgentThread
)

// StatedumpProducerFunc is a producer's state-replay callback, invoked
// once per pending notification with the request key scoped to that
// notification. The pointer's validity ends when the call returns.
type StatedumpProducerFunc = statedump.ProducerFunc

// StatedumpHandle identifies one registered state-dump producer.
type StatedumpHandle = statedump.Handle

// NewEvent allocates a fresh, unattached event description: version-0
// state, zero callbacks, the given name/loglevel/flags. Callers own
// the returned pointer and pass it to RegisterEvents.
func NewEvent(name string, level LogLevel, flags Flags) *EventDescription {
	s := sideevent.NewState()
	d := &EventDescription{Name: name, LogLevel: level, Flags: flags, State: s}
	s.SetDesc(d)

	return d
}

// NewEventWithVersion allocates an event description whose state
// reports the given ABI version instead of 0, for exercising the
// forward-incompatible-producer abort path. A real producer never
// uses anything but version 0.
func NewEventWithVersion(name string, level LogLevel, flags Flags, version uint32) *EventDescription {
	s := sideevent.NewStateWithVersion(version)
	d := &EventDescription{Name: name, LogLevel: level, Flags: flags, State: s}
	s.SetDesc(d)

	return d
}
