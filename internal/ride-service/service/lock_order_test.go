package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"rideshare/internal/ride-service/domain"
	"rideshare/internal/ride-service/matching"
	"rideshare/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rowLockLog records the row locks a transaction takes, in order.
type rowLockLog struct {
	mu   sync.Mutex
	keys []string
}

func (l *rowLockLog) add(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
}

func (l *rowLockLog) take() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.keys
	l.keys = nil
	return out
}

type rowLockStore struct {
	domain.TxStore
	log *rowLockLog
}

func (s *rowLockStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Store) error) error {
	return s.TxStore.WithinTx(ctx, func(ctx context.Context, tx domain.Store) error {
		return fn(ctx, &rowLockTx{Store: tx, log: s.log})
	})
}

type rowLockTx struct {
	domain.Store
	log *rowLockLog
}

func (t *rowLockTx) Requests() domain.RideRequestRepository {
	return rowLockRequests{RideRequestRepository: t.Store.Requests(), log: t.log}
}

func (t *rowLockTx) Rides() domain.RideRepository {
	return rowLockRides{RideRepository: t.Store.Rides(), log: t.log}
}

type rowLockRequests struct {
	domain.RideRequestRepository
	log *rowLockLog
}

func (r rowLockRequests) LockForUpdate(ctx context.Context, id string) error {
	r.log.add(requestKey(id))
	return r.RideRequestRepository.LockForUpdate(ctx, id)
}

type rowLockRides struct {
	domain.RideRepository
	log *rowLockLog
}

func (r rowLockRides) LockForUpdate(ctx context.Context, id string) (int64, error) {
	r.log.add(rideKey(id))
	return r.RideRepository.LockForUpdate(ctx, id)
}

func TestRowLocksTakeRequestBeforeRide(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ride := f.matched(t)
	second, err := f.rides.MatchRide(ctx, f.request(t, "r1", "3000", "3045").ID())
	require.NoError(t, err)

	locks := &rowLockLog{}
	store := &rowLockStore{TxStore: f.store, log: locks}
	strategy := matching.NewAvailabilityStrategy(f.store.Drivers(), f.store.Availability(), f.guard, time.UTC)
	rides := NewRideService(store, f.locks, strategy, domain.NewFareTable(), f.notifier, logger.Nop(), WithLockTimeout(time.Second))

	cmd := RideCommand{RideID: ride.ID(), DriverID: "d1"}
	want := []string{requestKey(ride.RequestID()), rideKey(ride.ID())}
	for _, step := range []struct {
		name string
		op   func(context.Context, RideCommand) (*domain.Ride, error)
	}{
		{"accept", rides.AcceptRide},
		{"start", rides.StartRide},
		{"complete", rides.CompleteRide},
	} {
		_, err := step.op(ctx, cmd)
		require.NoError(t, err, step.name)
		assert.Equal(t, want, locks.take(), step.name)
	}

	_, err = rides.CancelRequest(ctx, second.RequestID())
	require.NoError(t, err)
	assert.Equal(t, []string{requestKey(second.RequestID()), rideKey(second.ID())}, locks.take(), "cancel")
}
