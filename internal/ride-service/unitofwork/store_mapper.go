package unitofwork

import (
	"context"
	"fmt"

	"rideshare/internal/ride-service/domain"
)

// StoreMapper routes entities to the repositories of one storage session.
// Ride updates are version-checked; wallet updates are balance-checked.
type StoreMapper struct {
	store domain.Store
}

func NewStoreMapper(store domain.Store) *StoreMapper {
	return &StoreMapper{store: store}
}

func (m *StoreMapper) Insert(ctx context.Context, e Entity) error {
	switch v := e.(type) {
	case *domain.RideRequest:
		return m.store.Requests().Insert(ctx, v)
	case *domain.Ride:
		return m.store.Rides().Insert(ctx, v)
	case *domain.Rider:
		return m.store.Riders().Insert(ctx, v)
	case *domain.Driver:
		return m.store.Drivers().Insert(ctx, v)
	case *domain.Payment:
		return m.store.Payments().Insert(ctx, v)
	case *domain.AvailabilitySchedule:
		return m.store.Availability().Replace(ctx, v)
	}
	return unsupported("insert", e)
}

func (m *StoreMapper) Update(ctx context.Context, e Entity) error {
	switch v := e.(type) {
	case *domain.RideRequest:
		return m.store.Requests().Update(ctx, v)
	case *domain.Ride:
		return m.updateRide(ctx, v)
	case *domain.Wallet:
		return m.updateWallet(ctx, v)
	case *domain.AvailabilitySchedule:
		return m.store.Availability().Replace(ctx, v)
	}
	return unsupported("update", e)
}

func (m *StoreMapper) Delete(ctx context.Context, e Entity) error {
	switch v := e.(type) {
	case *domain.RideRequest:
		return m.store.Requests().Delete(ctx, v.ID())
	case *domain.Ride:
		return m.store.Rides().Delete(ctx, v.ID())
	}
	return unsupported("delete", e)
}

func (m *StoreMapper) updateRide(ctx context.Context, ride *domain.Ride) error {
	rows, err := m.store.Rides().UpdateWithVersion(ctx, ride)
	if err != nil {
		return err
	}
	if rows == 0 {
		return &domain.ConcurrentModificationError{
			Entity:          "ride",
			ID:              ride.ID(),
			ExpectedVersion: ride.Version(),
		}
	}
	ride.SetVersion(ride.Version() + 1)
	return nil
}

func (m *StoreMapper) updateWallet(ctx context.Context, w *domain.Wallet) error {
	rows, err := m.store.Wallets().UpdateBalanceConditional(ctx, w.UserID(), w.LoadedBalance(), w.Balance())
	if err != nil {
		return err
	}
	if rows == 0 {
		return &domain.ConcurrentModificationError{Entity: "wallet", ID: w.UserID()}
	}
	w.MarkPersisted()
	return nil
}

func unsupported(op string, e Entity) error {
	return fmt.Errorf("%s %s: no mapper for %T", op, e.EntityKey(), e)
}
