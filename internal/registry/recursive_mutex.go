package registry

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// recursiveMutex is the event lock: tracer notification callbacks are
// legally permitted to re-enter RegisterEvents/RegisterTracer from the
// same goroutine that already holds the lock (a tracer reacting to an
// INSERT_EVENTS notification by attaching to a different event, for
// instance). A plain sync.Mutex would deadlock on that reentry.
//
// Go ships no recursive-lock primitive, so ownership is tracked by
// goroutine identity, parsed off the "goroutine N [" header of a
// runtime.Stack dump.
type recursiveMutex struct {
	mu    sync.Mutex
	held  sync.Mutex
	owner int64 // goroutine id currently holding held, or 0
	depth int
}

// goroutineID parses the numeric id out of the current goroutine's
// stack header, "goroutine 123 [running]:...". It is only ever used
// for lock-ownership bookkeeping, never exposed outside this package.
func goroutineID() int64 {
	var buf [64]byte

	n := runtime.Stack(buf[:], false)
	b := buf[:n]

	b = bytes.TrimPrefix(b, []byte("goroutine "))

	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}

	id, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		// Should be unreachable: runtime.Stack's header format is
		// stable. Treat as a distinct, never-matching owner rather
		// than panicking on a lock path.
		return -1
	}

	return id
}

// Lock acquires the event lock. If the calling goroutine already holds
// it, Lock increments the reentry depth and returns immediately.
func (m *recursiveMutex) Lock() {
	gid := goroutineID()

	m.mu.Lock()
	if m.owner == gid {
		m.depth++
		m.mu.Unlock()

		return
	}
	m.mu.Unlock()

	m.held.Lock()

	m.mu.Lock()
	m.owner = gid
	m.depth = 1
	m.mu.Unlock()
}

// Unlock releases one level of reentry. The underlying lock is only
// released once depth returns to zero.
func (m *recursiveMutex) Unlock() {
	gid := goroutineID()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.owner != gid {
		panic("registry: recursiveMutex Unlock called by non-owner goroutine")
	}

	m.depth--
	if m.depth > 0 {
		return
	}

	m.owner = 0
	m.held.Unlock()
}
