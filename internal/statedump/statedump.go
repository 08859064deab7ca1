// Package statedump implements the request/notification machine
// through which tracers ask a producer to replay its current state as
// a burst of synthetic event calls, either synchronously (polling
// mode) or via a shared background worker (agent-thread mode).
package statedump

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/sidecore/side/internal/keyalloc"
	"github.com/sidecore/side/internal/rcu"
	"github.com/sidecore/side/internal/sideerr"
)

// Mode selects how a request handle's pending notifications are run.
type Mode int

const (
	// Polling handles are run synchronously by the caller via RunPending.
	Polling Mode = iota
	// AgentThread handles are run by the shared background worker.
	AgentThread
)

// ProducerFunc is the producer's state-replay callback, invoked once
// per pending notification with the request key scoped to that
// notification. key's validity ends when the call returns.
type ProducerFunc func(key *uint64)

// BeginEndFunc emits the synthetic statedump_begin/_end bracket event
// carrying name and the same scoped key as the producer callback. The
// root package wires this to sideevent.StatedumpCall against its own
// begin/end event descriptions.
type BeginEndFunc func(name string, key *uint64)

// Handle is one registered state-dump producer.
type Handle struct {
	name  string
	cb    ProducerFunc
	mode  Mode
	queue []uint64
}

// Name returns the handle's producer name.
func (h *Handle) Name() string { return h.name }

// Mode returns the handle's run mode.
func (h *Handle) Mode() Mode { return h.mode }

// Machine owns the state-dump handle list and the shared agent thread.
type Machine struct {
	log logrus.FieldLogger

	dom *rcu.Domain

	begin BeginEndFunc
	end   BeginEndFunc

	mu         sync.Mutex // the state-dump lock
	waiterCond *sync.Cond
	workerCond *sync.Cond

	// handles is the RCU-published handle list: mutated copy-on-write
	// under mu, read lock-free by the agent thread inside a read-side
	// section on dom. Per-handle queues are guarded by mu, not RCU.
	handles atomic.Pointer[[]*Handle]

	agentMu  sync.Mutex // the agent-thread lock
	agent    *agent
	agentRef int

	exiting bool
}

// New creates an empty Machine. begin/end emit the statedump
// begin/end bracket events around each producer callback invocation.
func New(log logrus.FieldLogger, dom *rcu.Domain, begin, end BeginEndFunc) *Machine {
	m := &Machine{
		log:   log.WithField("component", "statedump"),
		dom:   dom,
		begin: begin,
		end:   end,
	}
	m.waiterCond = sync.NewCond(&m.mu)
	m.workerCond = sync.NewCond(&m.mu)
	m.handles.Store(&[]*Handle{})

	return m
}

// loadHandles returns the currently published handle list. Callers
// must hold either mu or a read-side section on dom.
func (m *Machine) loadHandles() []*Handle {
	return *m.handles.Load()
}

// publishHandles installs a new handle list. Callers must hold mu.
func (m *Machine) publishHandles(hs []*Handle) {
	m.handles.Store(&hs)
}

// MarkExiting flips the machine into its post-Exit state.
func (m *Machine) MarkExiting() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.exiting = true
}

// RegisterNotification registers a new state-dump producer and queues
// its initial MatchAll-keyed dump. In AgentThread mode, it blocks
// until that initial dump has completed.
func (m *Machine) RegisterNotification(name string, cb ProducerFunc, mode Mode) (*Handle, sideerr.Error) {
	if cb == nil {
		return nil, sideerr.Inval
	}

	if mode == AgentThread {
		m.agentMu.Lock()
		defer m.agentMu.Unlock()
	}

	m.mu.Lock()

	if m.exiting {
		m.mu.Unlock()
		return nil, sideerr.Exiting
	}

	if mode == AgentThread && m.agentRef == 0 {
		m.agent = newAgent(m)
		m.agent.start()
	}

	h := &Handle{name: name, cb: cb, mode: mode, queue: []uint64{keyalloc.MatchAll}}

	cur := m.loadHandles()
	next := make([]*Handle, len(cur), len(cur)+1)
	copy(next, cur)
	m.publishHandles(append(next, h))

	if mode == AgentThread {
		m.agentRef++
		m.agent.state.set(flagHandleRequest)
		m.workerCond.Broadcast()
	}

	m.mu.Unlock()

	if mode == AgentThread {
		m.mu.Lock()
		for len(h.queue) > 0 {
			m.waiterCond.Wait()
		}
		m.mu.Unlock()
	}

	m.log.WithField("name", name).Debug("registered statedump handle")

	return h, sideerr.OK
}

// UnregisterNotification removes a handle, discarding any queued
// notifications, and shuts down the agent thread if this was its last
// referencing handle.
func (m *Machine) UnregisterNotification(h *Handle) sideerr.Error {
	if h.mode == AgentThread {
		m.agentMu.Lock()
		defer m.agentMu.Unlock()
	}

	m.mu.Lock()

	if m.exiting {
		m.mu.Unlock()
		return sideerr.Exiting
	}

	cur := m.loadHandles()
	idx := -1

	for i, c := range cur {
		if c == h {
			idx = i
			break
		}
	}

	if idx < 0 {
		m.mu.Unlock()
		return sideerr.NoEnt
	}

	next := make([]*Handle, 0, len(cur)-1)
	next = append(next, cur[:idx]...)
	next = append(next, cur[idx+1:]...)
	m.publishHandles(next)

	h.queue = nil

	joinNeeded := false

	if h.mode == AgentThread {
		m.agentRef--
		if m.agentRef == 0 {
			m.agent.state.set(flagExit)
			m.workerCond.Broadcast()
			joinNeeded = true
		}
	}

	m.mu.Unlock()

	if joinNeeded {
		m.agent.join()

		m.mu.Lock()
		m.agent = nil
		m.mu.Unlock()
	}

	m.dom.Synchronize()

	return sideerr.OK
}

// PollPendingRequests reports whether h has queued notifications.
// Always false for AgentThread handles, which are serviced by the
// worker and never polled by the caller.
func (m *Machine) PollPendingRequests(h *Handle) bool {
	if h.mode == AgentThread {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return len(h.queue) > 0
}

// RunPendingRequests synchronously runs h's pending-run. INVAL for
// AgentThread handles, which are run only by the worker.
func (m *Machine) RunPendingRequests(h *Handle) sideerr.Error {
	if h.mode == AgentThread {
		return sideerr.Inval
	}

	m.runPending(h)

	return sideerr.OK
}

// runPending splices h's queue into a local batch and runs each
// notification in FIFO order: begin, producer callback, end, all
// scoped to the same key.
func (m *Machine) runPending(h *Handle) {
	m.mu.Lock()
	batch := h.queue
	h.queue = nil
	m.mu.Unlock()

	for _, key := range batch {
		k := key

		if m.begin != nil {
			m.begin(h.name, &k)
		}

		h.cb(&k)

		if m.end != nil {
			m.end(h.name, &k)
		}
	}

	if h.mode == AgentThread {
		m.mu.Lock()
		m.waiterCond.Broadcast()
		m.mu.Unlock()
	}
}

// Request enqueues a notification with the given key on every
// registered handle. key must not be MatchAll.
func (m *Machine) Request(key uint64) sideerr.Error {
	if key == keyalloc.MatchAll {
		return sideerr.Inval
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	needsWorker := false

	for _, h := range m.loadHandles() {
		h.queue = append(h.queue, key)

		if h.mode == AgentThread {
			needsWorker = true
		}
	}

	if needsWorker && m.agent != nil {
		m.agent.state.set(flagHandleRequest)
		m.workerCond.Broadcast()
	}

	return sideerr.OK
}

// RequestCancel removes every queued notification matching key from
// every handle. key must not be MatchAll.
func (m *Machine) RequestCancel(key uint64) sideerr.Error {
	if key == keyalloc.MatchAll {
		return sideerr.Inval
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, h := range m.loadHandles() {
		kept := h.queue[:0]

		for _, k := range h.queue {
			if k != key {
				kept = append(kept, k)
			}
		}

		h.queue = kept
	}

	return sideerr.OK
}

