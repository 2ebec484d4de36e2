// Package unitofwork batches the writes of one lifecycle operation and
// flushes them through a Mapper in a fixed order.
package unitofwork

import (
	"context"
	"errors"
	"fmt"
)

// ErrSpent is returned when entities are registered on a unit of work that
// has already been committed.
var ErrSpent = errors.New("unit of work already committed")

// Entity is anything the unit of work can track. Keys must be unique across
// entity types, e.g. "ride:<id>".
type Entity interface {
	EntityKey() string
}

// Mapper writes a single entity to storage.
type Mapper interface {
	Insert(ctx context.Context, e Entity) error
	Update(ctx context.Context, e Entity) error
	Delete(ctx context.Context, e Entity) error
}

type intent int

const (
	intentNew intent = iota + 1
	intentDirty
	intentRemoved
)

func (i intent) String() string {
	switch i {
	case intentNew:
		return "new"
	case intentDirty:
		return "dirty"
	case intentRemoved:
		return "removed"
	}
	return "unknown"
}

// UnitOfWork is single-use and must not be shared between goroutines.
// Atomicity across entities comes from the Mapper's storage session, not
// from the unit of work itself.
type UnitOfWork struct {
	mapper Mapper

	intents map[string]intent
	newObjs []Entity
	dirty   []Entity
	removed []Entity
	spent   bool
}

func New(mapper Mapper) *UnitOfWork {
	return &UnitOfWork{
		mapper:  mapper,
		intents: make(map[string]intent),
	}
}

// RegisterNew queues e for insertion.
func (u *UnitOfWork) RegisterNew(e Entity) error {
	if u.spent {
		return ErrSpent
	}
	key := e.EntityKey()
	switch u.intents[key] {
	case intentNew:
		u.newObjs = replace(u.newObjs, e)
		return nil
	case intentDirty, intentRemoved:
		return fmt.Errorf("register new %s: already registered as %s", key, u.intents[key])
	}
	u.intents[key] = intentNew
	u.newObjs = append(u.newObjs, e)
	return nil
}

// RegisterDirty queues e for update. An entity already pending insertion
// stays an insert.
func (u *UnitOfWork) RegisterDirty(e Entity) error {
	if u.spent {
		return ErrSpent
	}
	key := e.EntityKey()
	switch u.intents[key] {
	case intentNew:
		u.newObjs = replace(u.newObjs, e)
		return nil
	case intentDirty:
		u.dirty = replace(u.dirty, e)
		return nil
	case intentRemoved:
		return fmt.Errorf("register dirty %s: already registered as removed", key)
	}
	u.intents[key] = intentDirty
	u.dirty = append(u.dirty, e)
	return nil
}

// RegisterRemoved queues e for deletion. Removing an entity that was only
// pending insertion forgets it.
func (u *UnitOfWork) RegisterRemoved(e Entity) error {
	if u.spent {
		return ErrSpent
	}
	key := e.EntityKey()
	switch u.intents[key] {
	case intentNew:
		u.newObjs = without(u.newObjs, key)
		delete(u.intents, key)
		return nil
	case intentDirty:
		u.dirty = without(u.dirty, key)
	case intentRemoved:
		return nil
	}
	u.intents[key] = intentRemoved
	u.removed = append(u.removed, e)
	return nil
}

// Pending reports how many entities are queued.
func (u *UnitOfWork) Pending() int {
	return len(u.newObjs) + len(u.dirty) + len(u.removed)
}

// Commit flushes inserts, then updates, then deletes, stopping at the first
// failure. Tracking is cleared whatever the outcome; a second Commit is a
// no-op.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.spent {
		return nil
	}
	u.spent = true
	defer u.clear()

	for _, e := range u.newObjs {
		if err := u.mapper.Insert(ctx, e); err != nil {
			return fmt.Errorf("insert %s: %w", e.EntityKey(), err)
		}
	}
	for _, e := range u.dirty {
		if err := u.mapper.Update(ctx, e); err != nil {
			return fmt.Errorf("update %s: %w", e.EntityKey(), err)
		}
	}
	for _, e := range u.removed {
		if err := u.mapper.Delete(ctx, e); err != nil {
			return fmt.Errorf("delete %s: %w", e.EntityKey(), err)
		}
	}
	return nil
}

func (u *UnitOfWork) clear() {
	u.intents = make(map[string]intent)
	u.newObjs = nil
	u.dirty = nil
	u.removed = nil
}

func replace(list []Entity, e Entity) []Entity {
	key := e.EntityKey()
	for i := range list {
		if list[i].EntityKey() == key {
			list[i] = e
		}
	}
	return list
}

func without(list []Entity, key string) []Entity {
	out := list[:0]
	for _, e := range list {
		if e.EntityKey() != key {
			out = append(out, e)
		}
	}
	return out
}
