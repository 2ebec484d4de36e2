package service

import (
	"context"

	"rideshare/internal/ride-service/domain"
	"rideshare/internal/ride-service/unitofwork"
	"rideshare/pkg/logger"
)

// RideCommand names a ride and the driver acting on it. An empty DriverID
// skips the assignment check.
type RideCommand struct {
	RideID   string
	DriverID string
}

// rideTransition describes one step of the ride lifecycle.
type rideTransition struct {
	action string

	ride    func(*domain.Ride) error
	request func(*domain.RideRequest) error

	// lockKeys adds aggregate keys to take after the request and ride.
	lockKeys func(*domain.Ride) []string

	// within runs in the same transaction after both transitions succeeded.
	within func(ctx context.Context, tx domain.Store, uow *unitofwork.UnitOfWork, ride *domain.Ride) error
}

// transitionRide is the shared template for accept, start and complete:
// check the driver, lock the request and ride, take row locks, re-read,
// transition, commit. The returned status is what the ride held before.
func (s *RideService) transitionRide(ctx context.Context, cmd RideCommand, t rideTransition) (*domain.Ride, domain.RideStatus, error) {
	fields := logger.LogFields{"ride_id": cmd.RideID, "driver_id": cmd.DriverID}

	advisory, err := s.store.Rides().FindByID(ctx, cmd.RideID)
	if err != nil {
		return nil, "", err
	}
	if cmd.DriverID != "" && !advisory.IsAssignedTo(cmd.DriverID) {
		s.log.WithFields(fields).Warn(t.action+"_rejected", domain.ErrDriverNotAssigned.Error())
		return nil, "", domain.ErrDriverNotAssigned
	}

	keys := []string{requestKey(advisory.RequestID()), rideKey(advisory.ID())}
	if t.lockKeys != nil {
		keys = append(keys, t.lockKeys(advisory)...)
	}

	var (
		ride *domain.Ride
		from domain.RideStatus
	)
	err = s.withLocks(ctx, keys, func() error {
		return inTx(ctx, s.store, func(ctx context.Context, tx domain.Store, uow *unitofwork.UnitOfWork) error {
			// request row before ride row, the same order cancel takes them
			if err := tx.Requests().LockForUpdate(ctx, advisory.RequestID()); err != nil {
				return err
			}
			if _, err := tx.Rides().LockForUpdate(ctx, cmd.RideID); err != nil {
				return err
			}

			var err error
			ride, err = tx.Rides().FindByID(ctx, cmd.RideID)
			if err != nil {
				return err
			}
			req, err := tx.Requests().FindByID(ctx, ride.RequestID())
			if err != nil {
				return err
			}

			from = ride.Status()
			if err := t.ride(ride); err != nil {
				return err
			}
			if err := uow.RegisterDirty(ride); err != nil {
				return err
			}

			// a request cancelled while its ride kept going stays cancelled
			if req.Status() != domain.StatusCancelled {
				if err := t.request(req); err != nil {
					return err
				}
				if err := uow.RegisterDirty(req); err != nil {
					return err
				}
			}

			if t.within != nil {
				return t.within(ctx, tx, uow, ride)
			}
			return nil
		})
	})
	if err != nil {
		s.log.WithFields(fields).Error(t.action+"_failed", err)
		return nil, "", err
	}

	s.log.WithFields(logger.LogFields{
		"ride_id":    ride.ID(),
		"request_id": ride.RequestID(),
		"driver_id":  ride.DriverID(),
		"status":     ride.Status().String(),
		"version":    ride.Version(),
	}).Info(t.action, "Ride is now "+ride.Status().String())

	s.publish(ctx, domain.RideStatusChangedEvent{
		RideID:    ride.ID(),
		RiderID:   ride.RiderID(),
		DriverID:  ride.DriverID(),
		OldStatus: from,
		NewStatus: ride.Status(),
		Version:   ride.Version(),
		ChangedAt: ride.UpdatedAt(),
	})
	return ride, from, nil
}

// AcceptRide moves a MATCHED ride and its request to ACCEPTED. Only the
// assigned driver may accept; that check precedes any locking.
func (s *RideService) AcceptRide(ctx context.Context, cmd RideCommand) (*domain.Ride, error) {
	if cmd.DriverID == "" {
		return nil, domain.NewValidationError("driver_id", "must not be empty")
	}
	ride, _, err := s.transitionRide(ctx, cmd, rideTransition{
		action:  "ride_accepted",
		ride:    (*domain.Ride).Accept,
		request: (*domain.RideRequest).MarkAccepted,
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, s.riderContact(ctx, ride.RiderID()), "Ride accepted")
	return ride, nil
}

// StartRide moves an ACCEPTED ride to IN_PROGRESS.
func (s *RideService) StartRide(ctx context.Context, cmd RideCommand) (*domain.Ride, error) {
	ride, _, err := s.transitionRide(ctx, cmd, rideTransition{
		action:  "ride_started",
		ride:    (*domain.Ride).Start,
		request: (*domain.RideRequest).MarkInProgress,
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, s.riderContact(ctx, ride.RiderID()), "Ride started")
	return ride, nil
}
