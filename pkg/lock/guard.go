package lock

import "sync"

// AvailabilityGuard keeps one RWMutex per driver. Readers of a driver's
// schedule share it; a schedule write excludes everyone for that driver only.
type AvailabilityGuard struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func NewAvailabilityGuard() *AvailabilityGuard {
	return &AvailabilityGuard{locks: make(map[string]*sync.RWMutex)}
}

// RegisterDriver creates the driver's lock ahead of first use. Calling it
// again is a no-op.
func (g *AvailabilityGuard) RegisterDriver(driverID string) {
	g.lockFor(driverID)
}

func (g *AvailabilityGuard) lockFor(driverID string) *sync.RWMutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.locks[driverID]
	if !ok {
		l = &sync.RWMutex{}
		g.locks[driverID] = l
	}
	return l
}

// WithReadLock runs fn while holding the driver's read lock.
func (g *AvailabilityGuard) WithReadLock(driverID string, fn func() error) error {
	l := g.lockFor(driverID)
	l.RLock()
	defer l.RUnlock()
	return fn()
}

// WithWriteLock runs fn while holding the driver's write lock.
func (g *AvailabilityGuard) WithWriteLock(driverID string, fn func() error) error {
	l := g.lockFor(driverID)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// Registered reports whether the driver's lock exists.
func (g *AvailabilityGuard) Registered(driverID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.locks[driverID]
	return ok
}
