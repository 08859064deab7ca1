package side

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/sidecore/side/internal/keyalloc"
	"github.com/sidecore/side/internal/rcu"
	"github.com/sidecore/side/internal/registry"
	"github.com/sidecore/side/internal/sideevent"
	"github.com/sidecore/side/internal/statedump"
)

// core is the package-level singleton backing every exported
// operation: the state-dump RCU domain (the event-dispatch domain is
// a process singleton owned by internal/sideevent), the key
// allocator, the event registry, and the state-dump machine.
type core struct {
	mu sync.Mutex

	// ready flips to true once init has completed, so the dispatch
	// fast path can skip straight past initialization with a single
	// atomic load instead of taking mu on every call.
	ready     atomic.Bool
	finalized atomic.Bool

	log logrus.FieldLogger

	dumpDom *rcu.Domain

	keys *keyalloc.Allocator
	reg  *registry.Registry
	dump *statedump.Machine

	beginDesc *sideevent.Description
	endDesc   *sideevent.Description
}

var defaultCore = &core{log: logrus.StandardLogger()}

// SetLogger overrides the logger used by the registry and state-dump
// machine. Call before the first register/dispatch call; it has no
// effect once Init has already run.
func SetLogger(log logrus.FieldLogger) {
	defaultCore.mu.Lock()
	defer defaultCore.mu.Unlock()

	if !defaultCore.ready.Load() {
		defaultCore.log = log
	}
}

// Init sets up the state-dump RCU domain (the event-dispatch domain is
// a package-level singleton in internal/sideevent), the key allocator,
// the registry, the state-dump machine and the standing
// statedump_begin/statedump_end events. It is lazy and idempotent:
// every public register/dispatch entry point calls it before doing
// anything else, so most embedders never need to call it directly.
// Safe to call concurrently and more than once.
func Init() {
	defaultCore.init()
}

func (c *core) init() {
	if c.ready.Load() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ready.Load() {
		return
	}

	c.dumpDom = rcu.NewDomain()
	c.keys = keyalloc.New()
	c.reg = registry.New(c.log, c.keys)

	sideevent.SetLogger(c.log)

	c.beginDesc = &sideevent.Description{Name: "statedump_begin", State: sideevent.NewState()}
	c.beginDesc.State.SetDesc(c.beginDesc)
	c.endDesc = &sideevent.Description{Name: "statedump_end", State: sideevent.NewState()}
	c.endDesc.State.SetDesc(c.endDesc)

	c.dump = statedump.New(c.log, c.dumpDom, c.emitBegin, c.emitEnd)

	// The release store publishes every field written above to
	// fast-path readers that load ready without taking mu.
	c.ready.Store(true)
}

func (c *core) emitBegin(name string, key *uint64) {
	sideevent.StatedumpCall(c.beginDesc.State, c.beginDesc, name, key, sideevent.CallerPC())
}

func (c *core) emitEnd(name string, key *uint64) {
	sideevent.StatedumpCall(c.endDesc.State, c.endDesc, name, key, sideevent.CallerPC())
}

// Exit unregisters all event batches and marks the registry and
// state-dump machine as exiting: subsequent register/unregister calls
// become no-ops returning Exiting. Go has no library destructor, so
// embedders must call this explicitly during shutdown.
func Exit() {
	defaultCore.exit()
}

func (c *core) exit() {
	c.mu.Lock()
	if !c.ready.Load() || c.finalized.Load() {
		c.mu.Unlock()
		return
	}

	c.finalized.Store(true)
	reg := c.reg
	dump := c.dump
	c.mu.Unlock()

	for _, batch := range reg.EventBatches() {
		_ = reg.UnregisterEvents(batch)
	}

	reg.MarkExiting()
	dump.MarkExiting()
}
