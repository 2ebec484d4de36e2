package service

import (
	"context"
	"testing"

	"rideshare/internal/ride-service/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCancelRequestedRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.rider(t, "r1")
	req := f.request(t, "r1", "3000", "3045")

	cancelled, err := f.rides.CancelRequest(ctx, req.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status())
	assert.Contains(t, f.notifier.messages(), "r1: Ride request cancelled")

	_, err = f.rides.CancelRequest(ctx, req.ID())
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestCancelCascadesToRide(t *testing.T) {
	for _, status := range []domain.RideStatus{domain.StatusMatched, domain.StatusAccepted} {
		t.Run(string(status), func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			ride := f.matched(t)
			f.advance(t, ride, status)

			req, err := f.rides.CancelRequest(ctx, ride.RequestID())
			require.NoError(t, err)
			assert.Equal(t, domain.StatusCancelled, req.Status())
			assert.Equal(t, "d1", req.DriverID())

			stored, err := f.rides.GetRide(ctx, ride.ID())
			require.NoError(t, err)
			assert.Equal(t, domain.StatusCancelled, stored.Status())
			require.NotNil(t, stored.CancelledAt())
			assert.Contains(t, f.notifier.messages(), "d1: Ride cancelled by rider")

			_, err = f.rides.AcceptRide(ctx, RideCommand{RideID: ride.ID(), DriverID: "d1"})
			assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
		})
	}
}

func TestCancelInProgressLeavesRideRunning(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ride := f.matched(t)
	f.advance(t, ride, domain.StatusInProgress)

	req, err := f.rides.CancelRequest(ctx, ride.RequestID())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, req.Status())

	stored, _ := f.rides.GetRide(ctx, ride.ID())
	assert.Equal(t, domain.StatusInProgress, stored.Status())

	done, err := f.rides.CompleteRide(ctx, RideCommand{RideID: ride.ID(), DriverID: "d1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status())

	after, _ := f.rides.GetRequest(ctx, ride.RequestID())
	assert.Equal(t, domain.StatusCancelled, after.Status(), "cancelled request stays cancelled")
}

func TestCancelCompletedRequestFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ride := f.matched(t)
	f.advance(t, ride, domain.StatusCompleted)

	_, err := f.rides.CancelRequest(ctx, ride.RequestID())
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	req, _ := f.rides.GetRequest(ctx, ride.RequestID())
	assert.Equal(t, domain.StatusCompleted, req.Status())
}

func TestCancelUnknownRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.rides.CancelRequest(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
