package statedump

import (
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// agentStateBits are the flags carried in the agent's atomic state
// word. There is no dedicated "blocked" bit: the worker condvar wait
// loop spins while none of HandleRequest/Exit/Pause is set, which is
// exactly the blocked state.
type agentStateBits = uint32

const (
	flagHandleRequest agentStateBits = 1 << iota
	flagExit
	flagPause
	flagPauseAck
)

// agentState is the agent thread's small atomic state word.
type agentState struct {
	bits atomic.Uint32
}

func (s *agentState) set(flag agentStateBits)   { s.bits.Or(flag) }
func (s *agentState) clear(flag agentStateBits) { s.bits.And(^flag) }
func (s *agentState) get() agentStateBits       { return s.bits.Load() }

// pauseSpinIterations bounds the CPU-relax phase of the pause-ack
// busy-loop before it falls back to poll(NULL, 0, 1)-style 1ms sleeps.
const pauseSpinIterations = 1000

// pauseBackoff busy-waits until cond reports true, spinning briefly
// before falling back to a 1ms poll-based sleep. Both the agent's
// PAUSE responder and the fork-prepare handler use this exact scheme,
// to avoid condvar waits while holding locks that must cross a fork.
func pauseBackoff(cond func() bool) {
	for i := 0; i < pauseSpinIterations; i++ {
		if cond() {
			return
		}
	}

	for !cond() {
		// unix.Poll(nil, 1) (no fds, 1ms timeout) is the Go analog of
		// the source's literal poll(NULL, 0, 1): block the calling thread
		// for up to 1ms without a timer allocation or a condvar.
		_, _ = unix.Poll(nil, 1)
	}
}

// agent is the process-singleton worker thread that services
// AgentThread-mode state-dump handles.
type agent struct {
	m     *Machine
	state agentState
	done  chan struct{}
}

func newAgent(m *Machine) *agent {
	return &agent{m: m, done: make(chan struct{})}
}

func (a *agent) start() {
	go a.run()
}

// join blocks until the worker goroutine has exited. Must be called
// without holding the state-dump lock.
func (a *agent) join() {
	<-a.done
}

// run is the agent thread main loop.
func (a *agent) run() {
	defer close(a.done)

	for {
		a.m.mu.Lock()
		for a.state.get()&(flagHandleRequest|flagExit|flagPause) == 0 {
			a.m.workerCond.Wait()
		}
		snapshot := a.state.get()
		a.m.mu.Unlock()

		if snapshot&flagExit != 0 {
			return
		}

		if snapshot&flagPause != 0 {
			a.state.set(flagPauseAck)
			pauseBackoff(func() bool { return a.state.get()&flagPause == 0 })
			a.state.clear(flagPauseAck)

			continue
		}

		a.state.clear(flagHandleRequest)

		// The handle list is RCU-published so this walk never takes
		// the state-dump lock; runPending takes it only briefly to
		// splice each queue.
		g := a.m.dom.ReadLock()

		for _, h := range a.m.loadHandles() {
			if h.mode == AgentThread {
				a.m.runPending(h)
			}
		}

		a.m.dom.ReadUnlock(g)
	}
}

// quiesce pauses the worker ahead of a fork: it sets PAUSE, wakes the
// worker, and busy-waits for PAUSE_ACK using the same back-off scheme
// the worker itself uses to respond. The state-dump lock is taken only
// long enough to flip the flag and is not held across the wait,
// because the agent may legitimately be holding it.
func (a *agent) quiesce() {
	a.m.mu.Lock()
	a.state.set(flagPause)
	a.m.workerCond.Broadcast()
	a.m.mu.Unlock()

	pauseBackoff(func() bool { return a.state.get()&flagPauseAck != 0 })
}

// resume clears PAUSE and PAUSE_ACK after a fork in the parent.
func (a *agent) resume() {
	a.state.clear(flagPause | flagPauseAck)
}
