// Package keyalloc issues the 64-bit tracer keys used to pair a
// tracer's callbacks with the events it cares about.
package keyalloc

import (
	"sync"

	"github.com/sidecore/side/internal/sideerr"
)

// Reserved keys, never returned by Allocator.Request.
const (
	MatchAll  uint64 = 0
	UserEvent uint64 = 1
	Ptrace    uint64 = 2

	// firstDynamic is the first key handed out to callers; 3..7 are
	// reserved for future special channels.
	firstDynamic uint64 = 8
)

// Allocator hands out strictly increasing, never-recycled keys starting
// at firstDynamic.
type Allocator struct {
	mu   sync.Mutex
	next uint64
}

// New creates an Allocator ready to issue keys starting at 8.
func New() *Allocator {
	return &Allocator{next: firstDynamic}
}

// Request returns the next key, or sideerr.NoMem if the counter has
// wrapped around to zero. Keys are never recycled.
func (a *Allocator) Request() (uint64, sideerr.Error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.next == 0 {
		return 0, sideerr.NoMem
	}

	key := a.next
	a.next++

	return key, sideerr.OK
}
