// Package matching picks a driver for a pending ride request.
package matching

import (
	"context"
	"fmt"
	"time"

	"rideshare/internal/ride-service/domain"
	"rideshare/pkg/lock"
)

// Strategy chooses a driver for a request, or fails with
// domain.ErrNoDriverAvailable. RequestableBy keeps the requests the driver
// could be matched to by the same rule, in the order given.
type Strategy interface {
	SelectDriver(ctx context.Context, req *domain.RideRequest) (*domain.Driver, error)
	RequestableBy(ctx context.Context, driverID string, reqs []*domain.RideRequest) ([]*domain.RideRequest, error)
}

// AvailabilityStrategy returns the first driver, in id order, whose weekly
// schedule covers the request's requested time. A driver with no windows is
// never chosen. Each schedule is read under the driver's read lock so a
// concurrent schedule replacement is seen either whole or not at all.
type AvailabilityStrategy struct {
	drivers      domain.DriverRepository
	availability domain.AvailabilityRepository
	guard        *lock.AvailabilityGuard
	loc          *time.Location
}

func NewAvailabilityStrategy(
	drivers domain.DriverRepository,
	availability domain.AvailabilityRepository,
	guard *lock.AvailabilityGuard,
	loc *time.Location,
) *AvailabilityStrategy {
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityStrategy{
		drivers:      drivers,
		availability: availability,
		guard:        guard,
		loc:          loc,
	}
}

func (s *AvailabilityStrategy) SelectDriver(ctx context.Context, req *domain.RideRequest) (*domain.Driver, error) {
	at := req.RequestedAt().In(s.loc)
	day, tod := at.Weekday(), domain.TimeOfDayOf(at)

	drivers, err := s.drivers.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}

	for _, d := range drivers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		schedule, err := s.schedule(ctx, d.ID())
		if err != nil {
			return nil, err
		}
		if schedule.IsAvailable(day, tod) {
			return d, nil
		}
	}
	return nil, domain.ErrNoDriverAvailable
}

func (s *AvailabilityStrategy) RequestableBy(ctx context.Context, driverID string, reqs []*domain.RideRequest) ([]*domain.RideRequest, error) {
	schedule, err := s.schedule(ctx, driverID)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.RideRequest, 0, len(reqs))
	for _, req := range reqs {
		if schedule.IsAvailableAt(req.RequestedAt(), s.loc) {
			out = append(out, req)
		}
	}
	return out, nil
}

// schedule reads a driver's windows under the driver's read lock.
func (s *AvailabilityStrategy) schedule(ctx context.Context, driverID string) (*domain.AvailabilitySchedule, error) {
	var schedule *domain.AvailabilitySchedule
	err := s.guard.WithReadLock(driverID, func() error {
		var err error
		schedule, err = s.availability.FindByDriver(ctx, driverID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read availability of driver %s: %w", driverID, err)
	}
	return schedule, nil
}
