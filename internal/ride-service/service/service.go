// Package service holds the ride lifecycle operations. Every mutating
// operation takes its aggregate locks, re-reads state inside a storage
// transaction, applies state machine transitions, commits a unit of work and
// only then notifies.
package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"rideshare/internal/ride-service/domain"
	"rideshare/internal/ride-service/matching"
	"rideshare/internal/ride-service/unitofwork"
	"rideshare/pkg/lock"
	"rideshare/pkg/logger"

	"github.com/google/uuid"
)

// DefaultLockTimeout bounds every aggregate lock wait.
const DefaultLockTimeout = 5 * time.Second

// Notifier delivers a human-readable message to a participant. Failures are
// logged by the caller and never undo a committed transition.
type Notifier interface {
	Notify(ctx context.Context, to domain.Contact, message string) error
}

// EventPublisher is the interface for publishing domain events
type EventPublisher interface {
	Publish(ctx context.Context, event domain.DomainEvent) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, domain.Contact, string) error { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.DomainEvent) error { return nil }

// Option customizes a RideService.
type Option func(*RideService)

func WithLockTimeout(d time.Duration) Option {
	return func(s *RideService) { s.lockTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *RideService) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *RideService) { s.newID = gen }
}

func WithEventPublisher(p EventPublisher) Option {
	return func(s *RideService) {
		if p != nil {
			s.publisher = p
		}
	}
}

// RideService is the ride lifecycle engine.
type RideService struct {
	store     domain.TxStore
	locks     *lock.Registry
	strategy  matching.Strategy
	fares     *domain.FareTable
	notifier  Notifier
	publisher EventPublisher
	log       logger.Logger

	lockTimeout time.Duration
	now         func() time.Time
	newID       func() string
}

func NewRideService(
	store domain.TxStore,
	locks *lock.Registry,
	strategy matching.Strategy,
	fares *domain.FareTable,
	notifier Notifier,
	log logger.Logger,
	opts ...Option,
) *RideService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	s := &RideService{
		store:       store,
		locks:       locks,
		strategy:    strategy,
		fares:       fares,
		notifier:    notifier,
		publisher:   nopPublisher{},
		log:         log,
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func requestKey(id string) string { return "request:" + id }
func rideKey(id string) string    { return "ride:" + id }
func walletKey(id string) string  { return "wallet:" + id }

// withLocks holds every key for the duration of fn. Keys are taken in the
// order given; duplicates are dropped. A timeout is reported as a
// *domain.ResourceBusyError.
func withLocks(ctx context.Context, locks *lock.Registry, timeout time.Duration, keys []string, fn func() error) error {
	set, err := locks.TryAcquireAll(ctx, timeout, dedupe(keys)...)
	if err != nil {
		var busy *lock.BusyError
		if errors.As(err, &busy) {
			return &domain.ResourceBusyError{
				Resource: strings.Replace(busy.Key, ":", " ", 1),
				Waited:   busy.Waited,
			}
		}
		return err
	}
	defer set.Release()
	return fn()
}

func (s *RideService) withLocks(ctx context.Context, keys []string, fn func() error) error {
	return withLocks(ctx, s.locks, s.lockTimeout, keys, fn)
}

// inTx runs fn inside one storage transaction and commits the unit of work
// fn filled in before the transaction ends.
func inTx(ctx context.Context, store domain.TxStore, fn func(ctx context.Context, tx domain.Store, uow *unitofwork.UnitOfWork) error) error {
	return store.WithinTx(ctx, func(ctx context.Context, tx domain.Store) error {
		uow := unitofwork.New(unitofwork.NewStoreMapper(tx))
		if err := fn(ctx, tx, uow); err != nil {
			return err
		}
		return uow.Commit(ctx)
	})
}

func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := keys[:0:0]
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// sortedWalletKeys returns wallet lock keys in a stable order.
func sortedWalletKeys(userIDs ...string) []string {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, walletKey(id))
	}
	sort.Strings(keys)
	return keys
}

func (s *RideService) riderContact(ctx context.Context, id string) domain.Contact {
	if r, err := s.store.Riders().FindByID(ctx, id); err == nil {
		return r.Contact()
	}
	return domain.Contact{UserID: id}
}

func (s *RideService) driverContact(ctx context.Context, id string) domain.Contact {
	if d, err := s.store.Drivers().FindByID(ctx, id); err == nil {
		return d.Contact()
	}
	return domain.Contact{UserID: id}
}

func (s *RideService) notify(ctx context.Context, to domain.Contact, message string) {
	if err := s.notifier.Notify(ctx, to, message); err != nil {
		s.log.WithFields(logger.LogFields{
			"recipient": to.UserID,
			"message":   message,
		}).Error("notify_failed", err)
	}
}

func (s *RideService) publish(ctx context.Context, events ...domain.DomainEvent) {
	for _, event := range events {
		if err := s.publisher.Publish(ctx, event); err != nil {
			// Log error but don't fail the operation - state is already committed
			s.log.WithFields(logger.LogFields{
				"event_type":   event.EventType(),
				"aggregate_id": event.AggregateID(),
			}).Error("publish_event_failed", err)
			continue
		}
		s.log.WithFields(logger.LogFields{
			"event_type":   event.EventType(),
			"aggregate_id": event.AggregateID(),
		}).Debug("event_published", "Domain event published")
	}
}
