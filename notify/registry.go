package notify

import (
	"sync"
	"time"
)

const (
	// DefaultIdleTimeout is how long an untouched visitor store is kept
	DefaultIdleTimeout = 30 * time.Minute
	// DefaultMaxVisitors caps the number of stores held at once
	DefaultMaxVisitors = 10000
	sweepEvery         = time.Minute
)

type entry struct {
	store *Store
	seen  time.Time
}

// Registry hands out one Store per visitor id. Stores idle for longer
// than the idle timeout are dropped, and the least recently used store
// makes room when the registry is full.
type Registry struct {
	mu        sync.Mutex
	stores    map[string]*entry
	factory   func() *Store
	idle      time.Duration
	max       int
	now       func() time.Time
	lastSweep time.Time
}

// NewRegistry creates a registry; factory defaults to New
func NewRegistry(factory func() *Store) *Registry {
	if factory == nil {
		factory = New
	}
	return &Registry{
		stores:  make(map[string]*entry),
		factory: factory,
		idle:    DefaultIdleTimeout,
		max:     DefaultMaxVisitors,
		now:     time.Now,
	}
}

func (r *Registry) WithIdleTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.idle = d
	}
	return r
}

func (r *Registry) WithMaxVisitors(n int) *Registry {
	if n > 0 {
		r.max = n
	}
	return r
}

func (r *Registry) WithClock(now func() time.Time) *Registry {
	if now != nil {
		r.now = now
	}
	return r
}

// Get returns the store of visitorID, creating it on first use
func (r *Registry) Get(visitorID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if e, ok := r.stores[visitorID]; ok {
		e.seen = now
		return e.store
	}

	if now.Sub(r.lastSweep) >= sweepEvery || len(r.stores) >= r.max {
		r.sweep(now)
	}
	if len(r.stores) >= r.max {
		r.evictOldest()
	}

	s := r.factory()
	r.stores[visitorID] = &entry{store: s, seen: now}
	return s
}

// Peek returns the store of visitorID without creating one
func (r *Registry) Peek(visitorID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.stores[visitorID]
	if !ok {
		return nil, false
	}
	e.seen = r.now()
	return e.store, true
}

// Lazy returns a handle that only creates the store of visitorID when
// something is written to it
func (r *Registry) Lazy(visitorID string) *Lazy {
	return &Lazy{registry: r, visitorID: visitorID}
}

// Sweep drops the stores idle for longer than the idle timeout and
// returns how many were dropped
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweep(r.now())
}

func (r *Registry) sweep(now time.Time) int {
	r.lastSweep = now
	dropped := 0
	for id, e := range r.stores {
		if now.Sub(e.seen) > r.idle {
			delete(r.stores, id)
			dropped++
		}
	}
	return dropped
}

func (r *Registry) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, e := range r.stores {
		if oldestID == "" || e.seen.Before(oldest) {
			oldestID, oldest = id, e.seen
		}
	}
	delete(r.stores, oldestID)
}

// Len returns the number of known visitors
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Lazy defers creating a visitor store until it is needed
type Lazy struct {
	registry  *Registry
	visitorID string
}

// Store returns the visitor store, creating it if needed
func (l *Lazy) Store() *Store {
	return l.registry.Get(l.visitorID)
}

// Snapshot returns the visitor state, empty when no store exists
func (l *Lazy) Snapshot() State {
	if s, ok := l.registry.Peek(l.visitorID); ok {
		return s.Snapshot()
	}
	return State{}
}
