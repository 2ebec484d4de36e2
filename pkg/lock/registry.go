// Package lock holds the in-process locking primitives used by the ride
// lifecycle: an exclusive lock per aggregate and a read/write lock per driver.
//
// Both types are plain values with an explicit constructor. A process creates
// one of each at startup and injects them; tests build isolated instances.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrBusy is returned by TryAcquire when the lock could not be taken in time.
var ErrBusy = errors.New("lock busy")

// BusyError names the key that stayed locked and how long the caller waited.
type BusyError struct {
	Key    string
	Waited time.Duration
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("lock %s still held after %s", e.Key, e.Waited)
}

func (e *BusyError) Unwrap() error { return ErrBusy }

// Registry hands out one exclusive lock per key. Locks are created on first
// use and kept for the lifetime of the registry.
type Registry struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewRegistry() *Registry {
	return &Registry{slots: make(map[string]chan struct{})}
}

// Handle is proof of ownership of one key. Release is safe to call more
// than once; only the first call unlocks.
type Handle struct {
	key  string
	slot chan struct{}
	once sync.Once
}

func (h *Handle) Key() string { return h.key }

// Release gives the lock back.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() { <-h.slot })
}

func (r *Registry) slot(key string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		r.slots[key] = s
	}
	return s
}

// Acquire blocks until key is free or ctx is done.
func (r *Registry) Acquire(ctx context.Context, key string) (*Handle, error) {
	s := r.slot(key)
	select {
	case s <- struct{}{}:
		return &Handle{key: key, slot: s}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryAcquire waits at most timeout for key. A timeout yields a *BusyError;
// cancellation of ctx yields ctx.Err().
func (r *Registry) TryAcquire(ctx context.Context, key string, timeout time.Duration) (*Handle, error) {
	s := r.slot(key)

	select {
	case s <- struct{}{}:
		return &Handle{key: key, slot: s}, nil
	default:
	}
	if timeout <= 0 {
		return nil, &BusyError{Key: key}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case s <- struct{}{}:
		return &Handle{key: key, slot: s}, nil
	case <-timer.C:
		return nil, &BusyError{Key: key, Waited: timeout}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryAcquireAll takes every key in the given order, each bounded by timeout.
// On failure the keys already taken are released before returning.
func (r *Registry) TryAcquireAll(ctx context.Context, timeout time.Duration, keys ...string) (*HandleSet, error) {
	set := &HandleSet{}
	for _, key := range keys {
		h, err := r.TryAcquire(ctx, key, timeout)
		if err != nil {
			set.Release()
			return nil, err
		}
		set.handles = append(set.handles, h)
	}
	return set, nil
}

// Len reports how many keys have ever been locked.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

// HandleSet releases a group of handles in reverse acquisition order.
type HandleSet struct {
	handles []*Handle
}

func (s *HandleSet) Release() {
	if s == nil {
		return
	}
	for i := len(s.handles) - 1; i >= 0; i-- {
		s.handles[i].Release()
	}
}
