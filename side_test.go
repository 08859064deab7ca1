package side

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneTracerOneEventFiresExactlyOnce(t *testing.T) {
	ev := NewEvent("one_tracer_one_event", LogLevelInfo, 0)

	h, err := RegisterEvents([]*EventDescription{ev})
	require.Equal(t, OK, err)
	defer UnregisterEvents(h)

	var calls int

	var gotDesc *EventDescription

	var gotArgs ArgVec

	var gotPriv any

	priv := "p1"

	require.Equal(t, OK, CallbackRegister(ev, func(desc *EventDescription, args ArgVec, p any, addr uintptr) {
		calls++
		gotDesc = desc
		gotArgs = args
		gotPriv = p
	}, priv, 0))

	Call(ev, "A")

	assert.Equal(t, 1, calls)
	assert.Same(t, ev, gotDesc)
	assert.Equal(t, "A", gotArgs)
	assert.Equal(t, priv, gotPriv)
}

func TestKeyedFilteringDispatchesOnlyMatchingCallbacks(t *testing.T) {
	ev := NewEvent("keyed_filtering", LogLevelInfo, 0)

	h, err := RegisterEvents([]*EventDescription{ev})
	require.Equal(t, OK, err)
	defer UnregisterEvents(h)

	var fired []int

	require.Equal(t, OK, CallbackRegister(ev, func(*EventDescription, ArgVec, any, uintptr) { fired = append(fired, 1) }, nil, 0))
	require.Equal(t, OK, CallbackRegister(ev, func(*EventDescription, ArgVec, any, uintptr) { fired = append(fired, 2) }, nil, 42))
	require.Equal(t, OK, CallbackRegister(ev, func(*EventDescription, ArgVec, any, uintptr) { fired = append(fired, 3) }, nil, 7))

	key := uint64(42)
	StatedumpCall(ev, "A", &key)

	assert.Equal(t, []int{1, 2}, fired)
}

func TestConcurrentRegisterUnregisterDuringDispatchNeverCrashes(t *testing.T) {
	ev := NewEvent("register_during_call", LogLevelInfo, 0)

	h, err := RegisterEvents([]*EventDescription{ev})
	require.Equal(t, OK, err)
	defer UnregisterEvents(h)

	stop := make(chan struct{})

	var emitted, observed int64

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		deadline := time.Now().Add(100 * time.Millisecond)
		for time.Now().Before(deadline) {
			Call(ev, nil)
			emitted++
		}

		close(stop)
	}()

	wg.Add(1)

	fn := func(*EventDescription, ArgVec, any, uintptr) {
		observed++
	}

	go func() {
		defer wg.Done()

		for {
			select {
			case <-stop:
				return
			default:
			}

			assert.Equal(t, OK, CallbackRegister(ev, fn, nil, 0))
			assert.Equal(t, OK, CallbackUnregister(ev, fn, nil, 0))
		}
	}()

	wg.Wait()

	assert.Greater(t, emitted, int64(0))
}

func TestPollingStatedumpRunsExactlyOnceThenDrains(t *testing.T) {
	var brackets []string

	require.Equal(t, OK, CallbackRegister(StatedumpBeginEvent(), func(desc *EventDescription, args ArgVec, priv any, addr uintptr) {
		if args == "proc-s4" {
			brackets = append(brackets, "begin")
		}
	}, nil, 0))
	require.Equal(t, OK, CallbackRegister(StatedumpEndEvent(), func(desc *EventDescription, args ArgVec, priv any, addr uintptr) {
		if args == "proc-s4" {
			brackets = append(brackets, "end")
		}
	}, nil, 0))

	var gotKey uint64 = 99

	h, err := StatedumpRequestNotificationRegister("proc-s4", func(key *uint64) {
		gotKey = *key
		brackets = append(brackets, "dump")
	}, StatedumpPolling)
	require.Equal(t, OK, err)
	defer StatedumpRequestNotificationUnregister(h)

	assert.True(t, StatedumpPollPendingRequests(h))

	require.Equal(t, OK, StatedumpRunPendingRequests(h))

	assert.Equal(t, []string{"begin", "dump", "end"}, brackets)
	assert.Equal(t, uint64(0), gotKey)
	assert.False(t, StatedumpPollPendingRequests(h))
}

func TestKeyedStatedumpRequestThenCancelProducesNoDump(t *testing.T) {
	h, err := StatedumpRequestNotificationRegister("proc-s5", func(key *uint64) {}, StatedumpPolling)
	require.Equal(t, OK, err)
	defer StatedumpRequestNotificationUnregister(h)

	require.Equal(t, OK, StatedumpRunPendingRequests(h)) // drain the initial MatchAll dump

	require.Equal(t, OK, StatedumpRequest(9))
	assert.True(t, StatedumpPollPendingRequests(h))

	require.Equal(t, OK, StatedumpRequestCancel(9))
	assert.False(t, StatedumpPollPendingRequests(h))

	require.Equal(t, OK, StatedumpRunPendingRequests(h))
}

func TestDispatchAbortsOnVersionMismatch(t *testing.T) {
	ev := NewEventWithVersion("abi_mismatch", LogLevelInfo, 0, 1)

	assert.Panics(t, func() {
		Call(ev, nil)
	})
}

func TestRegisterUnregisterAreInverses(t *testing.T) {
	ev := NewEvent("register_unregister_inverse", LogLevelInfo, 0)

	h, err := RegisterEvents([]*EventDescription{ev})
	require.Equal(t, OK, err)
	defer UnregisterEvents(h)

	fn := func(*EventDescription, ArgVec, any, uintptr) {}

	require.Equal(t, OK, CallbackRegister(ev, fn, "p", 5))
	assert.Equal(t, uint32(1), ev.State.NrCallbacks())

	require.Equal(t, OK, CallbackUnregister(ev, fn, "p", 5))
	assert.Equal(t, uint32(0), ev.State.NrCallbacks())
}

func TestDuplicateCallbackRegistrationRejected(t *testing.T) {
	ev := NewEvent("duplicate_rejection", LogLevelInfo, 0)

	fn := func(*EventDescription, ArgVec, any, uintptr) {}

	require.Equal(t, OK, CallbackRegister(ev, fn, "p", 1))
	defer CallbackUnregister(ev, fn, "p", 1)

	assert.Equal(t, Exist, CallbackRegister(ev, fn, "p", 1))
	assert.Equal(t, uint32(1), ev.State.NrCallbacks())
}

func TestRequestKeyIsMonotonicAndAboveReserved(t *testing.T) {
	var prev uint64

	for i := 0; i < 20; i++ {
		key, err := RequestKey()
		require.Equal(t, OK, err)
		assert.GreaterOrEqual(t, key, uint64(8))

		if i > 0 {
			assert.Greater(t, key, prev)
		}

		prev = key
	}
}

func TestVariadicMismatchRejected(t *testing.T) {
	plain := NewEvent("plain_for_variadic_check", LogLevelInfo, 0)
	variadic := NewEvent("variadic_for_plain_check", LogLevelInfo, FlagVariadic)

	assert.Equal(t, Inval, CallbackVariadicRegister(plain, func(*EventDescription, ArgVec, VarStruct, any, uintptr) {}, nil, 0))
	assert.Equal(t, Inval, CallbackRegister(variadic, func(*EventDescription, ArgVec, any, uintptr) {}, nil, 0))
}
