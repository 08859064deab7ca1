package side

// EventNotificationRegister subscribes a tracer to event-registration
// notifications: fn is replayed once per currently registered batch
// with InsertEvents, then invoked with InsertEvents/RemoveEvents as
// batches are registered and unregistered afterward.
func EventNotificationRegister(fn NotificationFunc, priv any) (*TracerHandle, Error) {
	defaultCore.init()
	return defaultCore.reg.RegisterTracer(fn, priv)
}

// EventNotificationUnregister unsubscribes a tracer notification
// handle, replaying RemoveEvents for every currently registered batch
// first.
func EventNotificationUnregister(h *TracerHandle) Error {
	defaultCore.init()
	return defaultCore.reg.UnregisterTracer(h)
}
