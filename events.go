package side

// RegisterEvents registers a batch of event descriptions, appending it
// to the registry and replaying INSERT_EVENTS to every currently
// subscribed tracer.
func RegisterEvents(events []*EventDescription) (*EventsHandle, Error) {
	defaultCore.init()
	return defaultCore.reg.RegisterEvents(events)
}

// UnregisterEvents removes a batch, notifies every tracer with
// REMOVE_EVENTS, then clears each event's callback table without
// waiting a grace period: the batch is unreachable by contract once
// unregistration begins.
func UnregisterEvents(h *EventsHandle) Error {
	defaultCore.init()
	return defaultCore.reg.UnregisterEvents(h)
}
