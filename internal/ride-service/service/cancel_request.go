package service

import (
	"context"
	"errors"

	"rideshare/internal/ride-service/domain"
	"rideshare/internal/ride-service/unitofwork"
	"rideshare/pkg/logger"
)

// CancelRequest cancels a request that is not yet COMPLETED. A linked ride
// still in MATCHED or ACCEPTED is cancelled with it; a ride already in
// progress is left to finish.
func (s *RideService) CancelRequest(ctx context.Context, requestID string) (*domain.RideRequest, error) {
	if _, err := s.store.Requests().FindByID(ctx, requestID); err != nil {
		return nil, err
	}

	keys := []string{requestKey(requestID)}
	if linked, err := s.store.Rides().FindByRequest(ctx, requestID); err == nil {
		keys = append(keys, rideKey(linked.ID()))
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	var (
		req          *domain.RideRequest
		ride         *domain.Ride
		from         domain.RideStatus
		rideFrom     domain.RideStatus
		rideCanceled bool
	)
	err := s.withLocks(ctx, keys, func() error {
		return inTx(ctx, s.store, func(ctx context.Context, tx domain.Store, uow *unitofwork.UnitOfWork) error {
			if err := tx.Requests().LockForUpdate(ctx, requestID); err != nil {
				return err
			}
			var err error
			req, err = tx.Requests().FindByID(ctx, requestID)
			if err != nil {
				return err
			}

			from = req.Status()
			if err := req.Cancel(); err != nil {
				return err
			}
			if err := uow.RegisterDirty(req); err != nil {
				return err
			}

			// every ride mutation also holds the request lock, so the ride
			// read here cannot change under us
			ride, err = tx.Rides().FindByRequest(ctx, requestID)
			if errors.Is(err, domain.ErrNotFound) {
				ride = nil
				return nil
			}
			if err != nil {
				return err
			}
			if !ride.CanBeCancelled() {
				return nil
			}
			if _, err := tx.Rides().LockForUpdate(ctx, ride.ID()); err != nil {
				return err
			}
			rideFrom = ride.Status()
			if err := ride.Cancel(); err != nil {
				return err
			}
			rideCanceled = true
			return uow.RegisterDirty(ride)
		})
	})
	if err != nil {
		s.log.WithFields(logger.LogFields{"request_id": requestID}).Error("cancel_request_failed", err)
		return nil, err
	}

	s.log.WithFields(logger.LogFields{
		"request_id":     req.ID(),
		"rider_id":       req.RiderID(),
		"driver_id":      req.DriverID(),
		"previous":       from.String(),
		"ride_cancelled": rideCanceled,
	}).Info("request_cancelled", "Ride request cancelled")

	cancelled := domain.RequestCancelledEvent{
		RequestID:   req.ID(),
		RiderID:     req.RiderID(),
		DriverID:    req.DriverID(),
		OldStatus:   from,
		CancelledAt: req.UpdatedAt(),
	}
	if ride != nil {
		cancelled.RideID = ride.ID()
	}
	s.publish(ctx, cancelled)
	if rideCanceled {
		s.publish(ctx, domain.RideStatusChangedEvent{
			RideID:    ride.ID(),
			RiderID:   ride.RiderID(),
			DriverID:  ride.DriverID(),
			OldStatus: rideFrom,
			NewStatus: domain.StatusCancelled,
			Version:   ride.Version(),
			ChangedAt: ride.UpdatedAt(),
		})
	}

	s.notify(ctx, s.riderContact(ctx, req.RiderID()), "Ride request cancelled")
	if req.HasDriver() {
		s.notify(ctx, s.driverContact(ctx, req.DriverID()), "Ride cancelled by rider")
	}
	return req, nil
}
