// Package registry owns the list of registered event batches and the
// list of tracer notification handles, and fans out insert/remove
// notifications between them under a recursive event lock.
package registry

import (
	"github.com/alphadose/haxmap"
	"github.com/sirupsen/logrus"

	"github.com/sidecore/side/internal/keyalloc"
	"github.com/sidecore/side/internal/sideerr"
	"github.com/sidecore/side/internal/sideevent"
)

// NotifyAction tags a tracer notification as an insertion or a
// removal of an event batch.
type NotifyAction int

const (
	InsertEvents NotifyAction = iota
	RemoveEvents
)

// NotifyFunc is a tracer's event-registration notification callback.
// It is invoked once per registered batch, both at registration
// (replay semantics) and as batches come and go afterward.
type NotifyFunc func(action NotifyAction, priv any, events []*sideevent.Description)

// EventsHandle identifies one registered event batch.
type EventsHandle struct {
	id     uint64
	events []*sideevent.Description
}

// Events returns the batch's event descriptions, in registration order.
func (h *EventsHandle) Events() []*sideevent.Description { return h.events }

// TracerHandle identifies one registered tracer notification
// subscription.
type TracerHandle struct {
	id   uint64
	fn   NotifyFunc
	priv any
}

// Registry holds the registered event batches and tracer notification
// handles, and fans notifications out between them.
type Registry struct {
	mu   recursiveMutex
	keys *keyalloc.Allocator
	log  logrus.FieldLogger

	events  []*EventsHandle
	tracers []*TracerHandle

	// tracerIndex is a lock-free secondary index from a synthetic
	// handle id to its TracerHandle, read by TracerByID for O(1)
	// lookups without walking the ordered slice that preserves
	// registration order.
	tracerIndex *haxmap.Map[uint64, *TracerHandle]

	exiting bool
}

// New creates an empty Registry. keys allocates the synthetic handle
// ids used by the tracer secondary index.
func New(log logrus.FieldLogger, keys *keyalloc.Allocator) *Registry {
	return &Registry{
		keys:        keys,
		log:         log.WithField("component", "registry"),
		tracerIndex: haxmap.New[uint64, *TracerHandle](),
	}
}

// RegisterCallback attaches entry to desc's callback table under the
// event lock. Holding the registry's lock here is what serializes
// copy-on-write publishes against each other; the dispatch fast path
// never takes it.
func (r *Registry) RegisterCallback(desc *sideevent.Description, entry sideevent.CallbackEntry) sideerr.Error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.exiting {
		return sideerr.Exiting
	}

	return sideevent.Register(desc.State, entry)
}

// UnregisterCallback detaches the entry matching (fn, priv, key) from
// desc's callback table under the event lock.
func (r *Registry) UnregisterCallback(desc *sideevent.Description, entry sideevent.CallbackEntry) sideerr.Error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.exiting {
		return sideerr.Exiting
	}

	return sideevent.Unregister(desc.State, entry)
}

// MarkExiting flips the registry into its post-Exit state: further
// register/unregister calls become no-ops returning EXITING.
func (r *Registry) MarkExiting() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.exiting = true
}

// RegisterEvents appends a new event batch and replays INSERT_EVENTS
// to every currently registered tracer.
func (r *Registry) RegisterEvents(events []*sideevent.Description) (*EventsHandle, sideerr.Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.exiting {
		return nil, sideerr.Exiting
	}

	id, kerr := r.keys.Request()
	if kerr != sideerr.OK {
		return nil, kerr
	}

	h := &EventsHandle{id: id, events: events}
	r.events = append(r.events, h)

	for _, t := range r.tracers {
		t.fn(InsertEvents, t.priv, events)
	}

	r.log.WithField("count", len(events)).Debug("registered event batch")

	return h, sideerr.OK
}

// UnregisterEvents removes a batch, notifies every tracer with
// REMOVE_EVENTS, then clears each event's callback table. The clear
// skips the grace period: the batch is unreachable by contract once
// it is unlinked from the registry.
func (r *Registry) UnregisterEvents(h *EventsHandle) sideerr.Error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.exiting {
		return sideerr.Exiting
	}

	idx := -1

	for i, e := range r.events {
		if e == h {
			idx = i
			break
		}
	}

	if idx < 0 {
		return sideerr.NoEnt
	}

	r.events = append(r.events[:idx], r.events[idx+1:]...)

	for _, t := range r.tracers {
		t.fn(RemoveEvents, t.priv, h.events)
	}

	for _, desc := range h.events {
		desc.State.Clear()
	}

	r.log.WithField("count", len(h.events)).Debug("unregistered event batch")

	return sideerr.OK
}

// RegisterTracer appends a tracer notification subscription and
// replays INSERT_EVENTS for every currently registered batch.
func (r *Registry) RegisterTracer(fn NotifyFunc, priv any) (*TracerHandle, sideerr.Error) {
	if fn == nil {
		return nil, sideerr.Inval
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.exiting {
		return nil, sideerr.Exiting
	}

	id, kerr := r.keys.Request()
	if kerr != sideerr.OK {
		return nil, kerr
	}

	h := &TracerHandle{id: id, fn: fn, priv: priv}
	r.tracers = append(r.tracers, h)
	r.tracerIndex.Set(id, h)

	for _, batch := range r.events {
		fn(InsertEvents, priv, batch.events)
	}

	return h, sideerr.OK
}

// UnregisterTracer replays REMOVE_EVENTS for every registered batch,
// then removes the handle.
func (r *Registry) UnregisterTracer(h *TracerHandle) sideerr.Error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.exiting {
		return sideerr.Exiting
	}

	idx := -1

	for i, t := range r.tracers {
		if t == h {
			idx = i
			break
		}
	}

	if idx < 0 {
		return sideerr.NoEnt
	}

	for _, batch := range r.events {
		h.fn(RemoveEvents, h.priv, batch.events)
	}

	r.tracers = append(r.tracers[:idx], r.tracers[idx+1:]...)
	r.tracerIndex.Del(h.id)

	return sideerr.OK
}

// TracerByID looks up a tracer handle by its synthetic handle id via
// the lock-free secondary index, without walking the ordered slice.
func (r *Registry) TracerByID(id uint64) (*TracerHandle, bool) {
	return r.tracerIndex.Get(id)
}

// EventBatches returns the currently registered batches, in
// registration order. Intended for tests and internal consistency
// checks; callers must not mutate the returned slice.
func (r *Registry) EventBatches() []*EventsHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*EventsHandle, len(r.events))
	copy(out, r.events)

	return out
}
