package statedump

// PrepareFork quiesces the agent thread ahead of a fork: if no handle
// is in AgentThread mode this is a no-op. Otherwise it pauses the
// worker and does not return until the pause is acknowledged, so the
// caller can safely fork without racing the worker's own locks.
//
// Go's runtime does not support continuing to run goroutines across a
// raw fork(); this exists for embedders who invoke fork() directly via
// cgo or a syscall shim and need the agent quiesced across that
// window. ForkParent/ForkChild must be called in the corresponding
// branch immediately after the fork returns.
func (m *Machine) PrepareFork() {
	m.agentMu.Lock()

	if m.agentRef == 0 {
		m.agentMu.Unlock()
		return
	}

	m.agent.quiesce()
}

// ForkParent clears the pause flags and releases the agent-thread
// lock taken by PrepareFork. Call this in the parent branch
// immediately after fork() returns.
func (m *Machine) ForkParent() {
	if m.agentRef == 0 {
		return
	}

	m.agent.resume()
	m.agentMu.Unlock()
}

// ForkChild reinitializes the agent thread in the child branch
// immediately after fork() returns: the worker goroutine that existed
// in the parent does not exist in the child's copy of the process, so
// if any handle still references AgentThread mode a fresh worker is
// spawned here instead.
func (m *Machine) ForkChild() {
	if m.agentRef == 0 {
		return
	}

	defer m.agentMu.Unlock()

	m.mu.Lock()
	m.agent = newAgent(m)
	m.agent.start()
	m.agent.state.set(flagHandleRequest)
	m.workerCond.Broadcast()
	m.mu.Unlock()
}
