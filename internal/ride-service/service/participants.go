package service

import (
	"context"
	"fmt"
	"time"

	"rideshare/internal/ride-service/domain"
	"rideshare/internal/ride-service/unitofwork"
	"rideshare/pkg/lock"
	"rideshare/pkg/logger"

	"github.com/google/uuid"
)

// ParticipantService manages riders, drivers, driver schedules and wallets.
type ParticipantService struct {
	store       domain.TxStore
	locks       *lock.Registry
	guard       *lock.AvailabilityGuard
	log         logger.Logger
	lockTimeout time.Duration
	newID       func() string
}

func NewParticipantService(
	store domain.TxStore,
	locks *lock.Registry,
	guard *lock.AvailabilityGuard,
	log logger.Logger,
	lockTimeout time.Duration,
) *ParticipantService {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &ParticipantService{
		store:       store,
		locks:       locks,
		guard:       guard,
		log:         log,
		lockTimeout: lockTimeout,
		newID:       uuid.NewString,
	}
}

// RegisterParticipantCommand is the input for RegisterRider and
// RegisterDriver. An empty ID is generated.
type RegisterParticipantCommand struct {
	ID      string
	Name    string
	Email   string
	Vehicle string
}

func (s *ParticipantService) RegisterRider(ctx context.Context, cmd RegisterParticipantCommand) (*domain.Rider, error) {
	id := cmd.ID
	if id == "" {
		id = s.newID()
	}
	rider, err := domain.NewRider(id, cmd.Name, cmd.Email)
	if err != nil {
		return nil, err
	}

	err = inTx(ctx, s.store, func(ctx context.Context, tx domain.Store, uow *unitofwork.UnitOfWork) error {
		if err := uow.RegisterNew(rider); err != nil {
			return err
		}
		return tx.Wallets().Ensure(ctx, rider.ID())
	})
	if err != nil {
		s.log.WithFields(logger.LogFields{"rider_id": id}).Error("register_rider_failed", err)
		return nil, fmt.Errorf("register rider: %w", err)
	}

	s.log.WithFields(logger.LogFields{"rider_id": rider.ID()}).Info("rider_registered", "Rider registered")
	return rider, nil
}

// RegisterDriver stores the driver with an empty schedule and prepares its
// availability lock.
func (s *ParticipantService) RegisterDriver(ctx context.Context, cmd RegisterParticipantCommand) (*domain.Driver, error) {
	id := cmd.ID
	if id == "" {
		id = s.newID()
	}
	driver, err := domain.NewDriver(id, cmd.Name, cmd.Email, cmd.Vehicle)
	if err != nil {
		return nil, err
	}

	err = inTx(ctx, s.store, func(ctx context.Context, tx domain.Store, uow *unitofwork.UnitOfWork) error {
		if err := uow.RegisterNew(driver); err != nil {
			return err
		}
		return tx.Wallets().Ensure(ctx, driver.ID())
	})
	if err != nil {
		s.log.WithFields(logger.LogFields{"driver_id": id}).Error("register_driver_failed", err)
		return nil, fmt.Errorf("register driver: %w", err)
	}
	s.guard.RegisterDriver(driver.ID())

	s.log.WithFields(logger.LogFields{"driver_id": driver.ID()}).Info("driver_registered", "Driver registered")
	return driver, nil
}

func (s *ParticipantService) GetRider(ctx context.Context, id string) (*domain.Rider, error) {
	return s.store.Riders().FindByID(ctx, id)
}

func (s *ParticipantService) GetDriver(ctx context.Context, id string) (*domain.Driver, error) {
	return s.store.Drivers().FindByID(ctx, id)
}

func (s *ParticipantService) ListDrivers(ctx context.Context) ([]*domain.Driver, error) {
	return s.store.Drivers().FindAll(ctx)
}
