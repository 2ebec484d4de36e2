package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"rideshare/internal/ride-service/domain"
	"rideshare/internal/ride-service/infrastructure/repository/memory"
	"rideshare/internal/ride-service/matching"
	"rideshare/pkg/lock"
	"rideshare/pkg/logger"

	"github.com/stretchr/testify/require"
)

// 2024-03-04 is a Monday.
var monday9am = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (n *recordingNotifier) Notify(_ context.Context, to domain.Contact, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, to.UserID+": "+message)
	if n.fail {
		return errors.New("smtp down")
	}
	return nil
}

func (n *recordingNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e.EventType())
	return nil
}

// flakyStore fails the commit of the next transaction after its body ran.
type flakyStore struct {
	*memory.Store
	mu       sync.Mutex
	failNext bool
}

var errConnectionLost = errors.New("connection lost")

func (s *flakyStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Store) error) error {
	return s.Store.WithinTx(ctx, func(ctx context.Context, tx domain.Store) error {
		if err := fn(ctx, tx); err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.failNext {
			s.failNext = false
			return errConnectionLost
		}
		return nil
	})
}

type fixture struct {
	store     *flakyStore
	locks     *lock.Registry
	guard     *lock.AvailabilityGuard
	rides     *RideService
	people    *ParticipantService
	notifier  *recordingNotifier
	publisher *recordingPublisher
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:     &flakyStore{Store: memory.NewStore()},
		locks:     lock.NewRegistry(),
		guard:     lock.NewAvailabilityGuard(),
		notifier:  &recordingNotifier{},
		publisher: &recordingPublisher{},
	}
	f.people = NewParticipantService(f.store, f.locks, f.guard, logger.Nop(), time.Second)
	f.rides = f.newRideService(f.locks, opts...)
	return f
}

// newRideService builds another engine over the same storage, optionally
// with its own lock registry.
func (f *fixture) newRideService(locks *lock.Registry, opts ...Option) *RideService {
	strategy := matching.NewAvailabilityStrategy(f.store.Drivers(), f.store.Availability(), f.guard, time.UTC)
	opts = append([]Option{WithEventPublisher(f.publisher), WithLockTimeout(time.Second)}, opts...)
	return NewRideService(f.store, locks, strategy, domain.NewFareTable(), f.notifier, logger.Nop(), opts...)
}

// rider registers a rider with $100 in the wallet.
func (f *fixture) rider(t *testing.T, id string) *domain.Rider {
	t.Helper()
	ctx := context.Background()
	r, err := f.people.RegisterRider(ctx, RegisterParticipantCommand{
		ID: id, Name: "Rider " + id, Email: id + "@example.com",
	})
	require.NoError(t, err)
	_, err = f.people.TopUpWallet(ctx, id, domain.Dollars(100))
	require.NoError(t, err)
	return r
}

func (f *fixture) driver(t *testing.T, id string, windows ...WindowInput) *domain.Driver {
	t.Helper()
	ctx := context.Background()
	d, err := f.people.RegisterDriver(ctx, RegisterParticipantCommand{
		ID: id, Name: "Driver " + id, Email: id + "@example.com", Vehicle: "sedan",
	})
	require.NoError(t, err)
	_, err = f.people.SetAvailability(ctx, SetAvailabilityCommand{DriverID: id, Windows: windows})
	require.NoError(t, err)
	return d
}

func (f *fixture) request(t *testing.T, riderID, pickup, dropoff string) *domain.RideRequest {
	t.Helper()
	req, err := f.rides.RequestRide(context.Background(), RequestRideCommand{
		RiderID:         riderID,
		PickupAddress:   "1 Swanston St",
		PickupPostcode:  pickup,
		DropoffAddress:  "Somewhere",
		DropoffPostcode: dropoff,
		RequestedAt:     monday9am,
	})
	require.NoError(t, err)
	return req
}

var mondayMorning = WindowInput{Day: "MONDAY", Start: "08:00", End: "12:00"}

// matched sets up rider r1 with $100, driver d1 free on Monday mornings and
// a matched $60 ride from the city to the airport.
func (f *fixture) matched(t *testing.T) *domain.Ride {
	t.Helper()
	f.rider(t, "r1")
	f.driver(t, "d1", mondayMorning)
	req := f.request(t, "r1", "3000", "3045")
	ride, err := f.rides.MatchRide(context.Background(), req.ID())
	require.NoError(t, err)
	return ride
}

// advance drives a matched ride to the wanted status.
func (f *fixture) advance(t *testing.T, ride *domain.Ride, to domain.RideStatus) {
	t.Helper()
	ctx := context.Background()
	cmd := RideCommand{RideID: ride.ID(), DriverID: ride.DriverID()}
	steps := []struct {
		status domain.RideStatus
		op     func(context.Context, RideCommand) (*domain.Ride, error)
	}{
		{domain.StatusAccepted, f.rides.AcceptRide},
		{domain.StatusInProgress, f.rides.StartRide},
		{domain.StatusCompleted, f.rides.CompleteRide},
	}
	for _, step := range steps {
		if to == domain.StatusMatched {
			return
		}
		_, err := step.op(ctx, cmd)
		require.NoError(t, err, fmt.Sprintf("advance to %s", step.status))
		if step.status == to {
			return
		}
	}
}
