package service

import (
	"context"
	"fmt"

	"rideshare/internal/ride-service/domain"
	"rideshare/internal/ride-service/unitofwork"
	"rideshare/pkg/logger"
)

// WindowInput is one weekly window as received from a client.
type WindowInput struct {
	Day   string
	Start string
	End   string
}

type SetAvailabilityCommand struct {
	DriverID string
	Windows  []WindowInput
}

// SetAvailability replaces a driver's whole schedule. Every window is
// validated before anything is written; the write happens under the
// driver's availability write lock so matching never reads it half done.
func (s *ParticipantService) SetAvailability(ctx context.Context, cmd SetAvailabilityCommand) (*domain.AvailabilitySchedule, error) {
	windows := make([]domain.AvailabilityWindow, 0, len(cmd.Windows))
	for i, in := range cmd.Windows {
		w, err := parseWindow(in)
		if err != nil {
			return nil, fmt.Errorf("window %d: %w", i, err)
		}
		windows = append(windows, w)
	}

	if _, err := s.store.Drivers().FindByID(ctx, cmd.DriverID); err != nil {
		return nil, err
	}
	schedule := domain.NewAvailabilitySchedule(cmd.DriverID, windows)

	err := s.guard.WithWriteLock(cmd.DriverID, func() error {
		return inTx(ctx, s.store, func(_ context.Context, _ domain.Store, uow *unitofwork.UnitOfWork) error {
			return uow.RegisterDirty(schedule)
		})
	})
	if err != nil {
		s.log.WithFields(logger.LogFields{"driver_id": cmd.DriverID}).Error("set_availability_failed", err)
		return nil, err
	}

	s.log.WithFields(logger.LogFields{
		"driver_id": cmd.DriverID,
		"windows":   len(windows),
	}).Info("availability_updated", "Driver availability replaced")
	return schedule, nil
}

// GetAvailability reads a driver's schedule under the read lock.
func (s *ParticipantService) GetAvailability(ctx context.Context, driverID string) (*domain.AvailabilitySchedule, error) {
	if _, err := s.store.Drivers().FindByID(ctx, driverID); err != nil {
		return nil, err
	}
	var schedule *domain.AvailabilitySchedule
	err := s.guard.WithReadLock(driverID, func() error {
		var err error
		schedule, err = s.store.Availability().FindByDriver(ctx, driverID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return schedule, nil
}

func parseWindow(in WindowInput) (domain.AvailabilityWindow, error) {
	day, err := domain.ParseWeekday(in.Day)
	if err != nil {
		return domain.AvailabilityWindow{}, err
	}
	start, err := domain.ParseTimeOfDay(in.Start)
	if err != nil {
		return domain.AvailabilityWindow{}, err
	}
	end, err := domain.ParseTimeOfDay(in.End)
	if err != nil {
		return domain.AvailabilityWindow{}, err
	}
	return domain.NewAvailabilityWindow(day, start, end)
}
