package service

import (
	"context"

	"rideshare/internal/ride-service/domain"
)

// ListOpenRequests returns requests still waiting for a driver to accept.
func (s *RideService) ListOpenRequests(ctx context.Context) ([]*domain.RideRequest, error) {
	all, err := s.store.Requests().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	open := make([]*domain.RideRequest, 0, len(all))
	for _, req := range all {
		if req.IsOpen() {
			open = append(open, req)
		}
	}
	return open, nil
}

// ListActiveRides returns rides that are neither completed nor cancelled.
func (s *RideService) ListActiveRides(ctx context.Context) ([]*domain.Ride, error) {
	all, err := s.store.Rides().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]*domain.Ride, 0, len(all))
	for _, ride := range all {
		if ride.IsActive() {
			active = append(active, ride)
		}
	}
	return active, nil
}

// ListRequestableFor returns the REQUESTED requests whose requested time the
// driver's schedule covers, oldest first. A driver without windows gets none.
func (s *RideService) ListRequestableFor(ctx context.Context, driverID string) ([]*domain.RideRequest, error) {
	if _, err := s.store.Drivers().FindByID(ctx, driverID); err != nil {
		return nil, err
	}
	all, err := s.store.Requests().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	waiting := make([]*domain.RideRequest, 0, len(all))
	for _, req := range all {
		if req.Status() == domain.StatusRequested {
			waiting = append(waiting, req)
		}
	}
	return s.strategy.RequestableBy(ctx, driverID, waiting)
}

// PreviewFare quotes the fare between two postcodes without recording
// anything.
func (s *RideService) PreviewFare(pickupPostcode, dropoffPostcode string) (domain.Money, error) {
	return s.fares.Quote(pickupPostcode, dropoffPostcode)
}

func (s *RideService) GetRide(ctx context.Context, id string) (*domain.Ride, error) {
	return s.store.Rides().FindByID(ctx, id)
}

func (s *RideService) GetRequest(ctx context.Context, id string) (*domain.RideRequest, error) {
	return s.store.Requests().FindByID(ctx, id)
}

// RiderHistory returns the rider's requests, newest first.
func (s *RideService) RiderHistory(ctx context.Context, riderID string) ([]*domain.RideRequest, error) {
	if _, err := s.store.Riders().FindByID(ctx, riderID); err != nil {
		return nil, err
	}
	return s.store.Requests().FindByRider(ctx, riderID)
}

func (s *RideService) DriverRides(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	if _, err := s.store.Drivers().FindByID(ctx, driverID); err != nil {
		return nil, err
	}
	return s.store.Rides().FindByDriver(ctx, driverID)
}

func (s *RideService) PaymentsForRide(ctx context.Context, rideID string) ([]*domain.Payment, error) {
	if _, err := s.store.Rides().FindByID(ctx, rideID); err != nil {
		return nil, err
	}
	return s.store.Payments().FindByRide(ctx, rideID)
}

// Overview is a point-in-time summary for operators.
type Overview struct {
	OpenRequests     int
	ActiveRides      int
	CompletedRides   int
	CancelledRides   int
	Drivers          int
	BusyDrivers      int
	CompletedRevenue domain.Money
}

// Overview counts requests, rides and drivers. The reads are not taken in one
// transaction so the figures may be slightly apart under load.
func (s *RideService) Overview(ctx context.Context) (Overview, error) {
	var o Overview

	open, err := s.ListOpenRequests(ctx)
	if err != nil {
		return o, err
	}
	o.OpenRequests = len(open)

	rides, err := s.store.Rides().FindAll(ctx)
	if err != nil {
		return o, err
	}
	busy := make(map[string]struct{})
	for _, ride := range rides {
		switch ride.Status() {
		case domain.StatusCompleted:
			o.CompletedRides++
			o.CompletedRevenue += ride.Fare()
		case domain.StatusCancelled:
			o.CancelledRides++
		default:
			o.ActiveRides++
			busy[ride.DriverID()] = struct{}{}
		}
	}
	o.BusyDrivers = len(busy)

	drivers, err := s.store.Drivers().FindAll(ctx)
	if err != nil {
		return o, err
	}
	o.Drivers = len(drivers)
	return o, nil
}
