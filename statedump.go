package side

// StatedumpRequestNotificationRegister registers a state-dump producer
// under name, with cb invoked once per pending request. In
// StatedumpAgentThread mode this blocks until the initial MatchAll
// dump has completed.
func StatedumpRequestNotificationRegister(name string, cb StatedumpProducerFunc, mode StatedumpMode) (*StatedumpHandle, Error) {
	defaultCore.init()
	return defaultCore.dump.RegisterNotification(name, cb, mode)
}

// StatedumpRequestNotificationUnregister removes a state-dump producer
// handle, discarding any notifications still queued on it.
func StatedumpRequestNotificationUnregister(h *StatedumpHandle) Error {
	defaultCore.init()
	return defaultCore.dump.UnregisterNotification(h)
}

// StatedumpPollPendingRequests reports whether h has queued
// notifications. Always false for StatedumpAgentThread handles.
func StatedumpPollPendingRequests(h *StatedumpHandle) bool {
	defaultCore.init()
	return defaultCore.dump.PollPendingRequests(h)
}

// StatedumpRunPendingRequests synchronously drains h's pending
// notifications. Returns Inval for StatedumpAgentThread handles, which
// are serviced only by the agent worker.
func StatedumpRunPendingRequests(h *StatedumpHandle) Error {
	defaultCore.init()
	return defaultCore.dump.RunPendingRequests(h)
}

// StatedumpRequest enqueues a notification with the given key on every
// registered state-dump handle. key must not be the MatchAll key.
func StatedumpRequest(key uint64) Error {
	defaultCore.init()
	return defaultCore.dump.Request(key)
}

// StatedumpRequestCancel removes every queued notification matching
// key from every registered handle. key must not be the MatchAll key.
func StatedumpRequestCancel(key uint64) Error {
	defaultCore.init()
	return defaultCore.dump.RequestCancel(key)
}

// StatedumpBeginEvent returns the standing statedump_begin event
// description, so tracers can attach ordinary callbacks to observe
// the start of every state-dump replay.
func StatedumpBeginEvent() *EventDescription {
	defaultCore.init()
	return defaultCore.beginDesc
}

// StatedumpEndEvent returns the standing statedump_end event
// description, the closing bracket of every state-dump replay.
func StatedumpEndEvent() *EventDescription {
	defaultCore.init()
	return defaultCore.endDesc
}
