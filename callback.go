package side

import "github.com/sidecore/side/internal/sideevent"

// CallbackRegister attaches a plain callback to desc under the event
// lock, rejecting an exact duplicate (fn, priv, key) tuple with Exist.
// desc must not be a variadic event; mismatches return Inval.
func CallbackRegister(desc *EventDescription, fn CallbackFunc, priv any, key uint64) Error {
	defaultCore.init()

	if desc.Variadic() {
		return Inval
	}

	return defaultCore.reg.RegisterCallback(desc, sideevent.CallbackEntry{
		Plain: fn,
		Priv:  priv,
		Key:   key,
	})
}

// CallbackUnregister detaches a previously registered plain callback
// matching (fn, priv, key). Returns NoEnt if no such entry exists.
func CallbackUnregister(desc *EventDescription, fn CallbackFunc, priv any, key uint64) Error {
	defaultCore.init()

	return defaultCore.reg.UnregisterCallback(desc, sideevent.CallbackEntry{
		Plain: fn,
		Priv:  priv,
		Key:   key,
	})
}

// CallbackVariadicRegister attaches a variadic callback to desc. desc
// must be a variadic event; mismatches return Inval.
func CallbackVariadicRegister(desc *EventDescription, fn VariadicCallbackFunc, priv any, key uint64) Error {
	defaultCore.init()

	if !desc.Variadic() {
		return Inval
	}

	return defaultCore.reg.RegisterCallback(desc, sideevent.CallbackEntry{
		Variadic: fn,
		Priv:     priv,
		Key:      key,
	})
}

// CallbackVariadicUnregister detaches a previously registered variadic
// callback matching (fn, priv, key).
func CallbackVariadicUnregister(desc *EventDescription, fn VariadicCallbackFunc, priv any, key uint64) Error {
	defaultCore.init()

	return defaultCore.reg.UnregisterCallback(desc, sideevent.CallbackEntry{
		Variadic: fn,
		Priv:     priv,
		Key:      key,
	})
}
