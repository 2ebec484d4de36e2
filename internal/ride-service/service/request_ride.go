package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rideshare/internal/ride-service/domain"
	"rideshare/internal/ride-service/unitofwork"
	"rideshare/pkg/logger"
)

// RequestRideCommand represents the input for requesting a ride
type RequestRideCommand struct {
	RiderID         string
	PickupAddress   string
	PickupPostcode  string
	DropoffAddress  string
	DropoffPostcode string

	// RequestedAt is when the rider wants to be picked up; zero means now.
	RequestedAt time.Time
}

// RequestRide records a new request in REQUESTED for an existing rider whose
// wallet covers the quoted fare.
func (s *RideService) RequestRide(ctx context.Context, cmd RequestRideCommand) (*domain.RideRequest, error) {
	pickup, err := domain.NewLocation(cmd.PickupAddress, cmd.PickupPostcode)
	if err != nil {
		return nil, fmt.Errorf("invalid pickup location: %w", err)
	}
	dropoff, err := domain.NewLocation(cmd.DropoffAddress, cmd.DropoffPostcode)
	if err != nil {
		return nil, fmt.Errorf("invalid dropoff location: %w", err)
	}

	rider, err := s.store.Riders().FindByID(ctx, cmd.RiderID)
	if err != nil {
		return nil, err
	}

	fare := s.fares.FareFor(pickup, dropoff)
	if err := checkAffordable(ctx, s.store.Wallets(), rider.ID(), fare); err != nil {
		s.log.WithFields(logger.LogFields{
			"rider_id": rider.ID(),
			"fare":     fare.String(),
		}).Warn("request_ride_rejected", err.Error())
		return nil, err
	}

	requestedAt := cmd.RequestedAt
	if requestedAt.IsZero() {
		requestedAt = s.now()
	}

	req, err := domain.NewRideRequest(s.newID(), rider.ID(), pickup, dropoff, requestedAt)
	if err != nil {
		return nil, err
	}

	err = inTx(ctx, s.store, func(ctx context.Context, _ domain.Store, uow *unitofwork.UnitOfWork) error {
		return uow.RegisterNew(req)
	})
	if err != nil {
		s.log.WithFields(logger.LogFields{"rider_id": rider.ID()}).Error("request_ride_failed", err)
		return nil, fmt.Errorf("save ride request: %w", err)
	}

	s.log.WithFields(logger.LogFields{
		"request_id": req.ID(),
		"rider_id":   rider.ID(),
		"pickup":     pickup.String(),
		"fare":       fare.String(),
	}).Info("ride_requested", "Ride request submitted")

	s.publish(ctx, domain.RideRequestedEvent{
		RequestID:   req.ID(),
		RiderID:     req.RiderID(),
		Pickup:      req.Pickup(),
		Dropoff:     req.Dropoff(),
		RequestedAt: req.RequestedAt(),
	})
	s.notify(ctx, rider.Contact(), "Ride request submitted")

	return req, nil
}

// checkAffordable fails with domain.ErrInsufficientFunds when the user's
// balance is below fare. A user without a wallet has a zero balance.
func checkAffordable(ctx context.Context, wallets domain.WalletRepository, userID string, fare domain.Money) error {
	if fare <= 0 {
		return nil
	}
	wallet, err := wallets.FindByUser(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrInsufficientFunds
	}
	if err != nil {
		return fmt.Errorf("read wallet: %w", err)
	}
	if wallet.Balance() < fare {
		return domain.ErrInsufficientFunds
	}
	return nil
}
