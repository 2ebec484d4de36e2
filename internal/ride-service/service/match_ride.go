package service

import (
	"context"
	"errors"

	"rideshare/internal/ride-service/domain"
	"rideshare/internal/ride-service/unitofwork"
	"rideshare/pkg/logger"
)

// MatchRide assigns a driver to a REQUESTED request and creates its ride in
// MATCHED. When no driver is available nothing is written and
// domain.ErrNoDriverAvailable is returned. The rider's balance is checked
// against the fare again, since it may have been spent since the request.
func (s *RideService) MatchRide(ctx context.Context, requestID string) (*domain.Ride, error) {
	var (
		ride   *domain.Ride
		driver *domain.Driver
	)

	err := s.withLocks(ctx, []string{requestKey(requestID)}, func() error {
		req, err := s.store.Requests().FindByID(ctx, requestID)
		if err != nil {
			return err
		}
		if !domain.CanRequestTransition(req.Status(), domain.StatusMatched) {
			return notRequested(req)
		}

		// selection happens outside the transaction; schedule writers hold
		// the availability guard while they commit
		driver, err = s.strategy.SelectDriver(ctx, req)
		if err != nil {
			return err
		}

		return inTx(ctx, s.store, func(ctx context.Context, tx domain.Store, uow *unitofwork.UnitOfWork) error {
			if err := tx.Requests().LockForUpdate(ctx, requestID); err != nil {
				return err
			}
			req, err := tx.Requests().FindByID(ctx, requestID)
			if err != nil {
				return err
			}
			fare := s.fares.FareFor(req.Pickup(), req.Dropoff())
			if err := checkAffordable(ctx, tx.Wallets(), req.RiderID(), fare); err != nil {
				return err
			}
			if err := req.AssignDriver(driver.ID()); err != nil {
				return err
			}

			ride, err = domain.NewRideFromRequest(s.newID(), req, fare)
			if err != nil {
				return err
			}
			if err := uow.RegisterDirty(req); err != nil {
				return err
			}
			return uow.RegisterNew(ride)
		})
	})
	if err != nil {
		fields := logger.LogFields{"request_id": requestID}
		switch {
		case errors.Is(err, domain.ErrNoDriverAvailable):
			s.log.WithFields(fields).Warn("no_driver_available", "No driver covers the requested time")
		case errors.Is(err, domain.ErrInsufficientFunds):
			s.log.WithFields(fields).Warn("match_ride_rejected", err.Error())
		default:
			s.log.WithFields(fields).Error("match_ride_failed", err)
		}
		return nil, err
	}

	s.log.WithFields(logger.LogFields{
		"request_id": requestID,
		"ride_id":    ride.ID(),
		"driver_id":  driver.ID(),
		"fare":       ride.Fare().String(),
	}).Info("ride_matched", "Driver assigned to ride request")

	s.publish(ctx, domain.RideMatchedEvent{
		RideID:    ride.ID(),
		RequestID: ride.RequestID(),
		RiderID:   ride.RiderID(),
		DriverID:  ride.DriverID(),
		Fare:      ride.Fare(),
		MatchedAt: ride.CreatedAt(),
	})
	s.notify(ctx, driver.Contact(), "New ride assigned")
	s.notify(ctx, s.riderContact(ctx, ride.RiderID()), "Driver assigned")

	return ride, nil
}

func notRequested(req *domain.RideRequest) error {
	return &domain.InvalidStateTransitionError{
		Entity:   "ride request",
		ID:       req.ID(),
		Expected: string(domain.StatusRequested),
		Actual:   req.Status(),
	}
}
