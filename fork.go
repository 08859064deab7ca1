package side

// PrepareFork quiesces the state-dump agent thread ahead of a raw
// fork(). A real fork() that continues running the Go runtime's
// goroutines in the child is undefined behavior in Go, so this trio is
// a best-effort contract for embedders who call fork() directly via
// cgo or a syscall shim and need the agent thread paused across that
// window. No-op if no handle is in StatedumpAgentThread mode.
func PrepareFork() {
	defaultCore.init()
	defaultCore.dump.PrepareFork()
}

// ForkParent clears the pause flags set by PrepareFork. Call this in
// the parent branch immediately after fork() returns.
func ForkParent() {
	if defaultCore.dump == nil {
		return
	}

	defaultCore.dump.ForkParent()
}

// ForkChild reinitializes the agent thread in the child branch
// immediately after fork() returns, since the worker goroutine that
// existed in the parent does not exist in the child.
func ForkChild() {
	if defaultCore.dump == nil {
		return
	}

	defaultCore.dump.ForkChild()
}
