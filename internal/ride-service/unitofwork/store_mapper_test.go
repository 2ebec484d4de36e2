package unitofwork_test

import (
	"context"
	"testing"
	"time"

	"rideshare/internal/ride-service/domain"
	"rideshare/internal/ride-service/infrastructure/repository/memory"
	"rideshare/internal/ride-service/unitofwork"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRide(t *testing.T, store *memory.Store) (*domain.RideRequest, *domain.Ride) {
	t.Helper()
	ctx := context.Background()
	loc, err := domain.NewLocation("1 Swanston St", "3000")
	require.NoError(t, err)
	req, err := domain.NewRideRequest("req-1", "rider-1", loc, loc, time.Now())
	require.NoError(t, err)
	require.NoError(t, req.AssignDriver("driver-1"))
	ride, err := domain.NewRideFromRequest("ride-1", req, domain.Dollars(40))
	require.NoError(t, err)

	uow := unitofwork.New(unitofwork.NewStoreMapper(store))
	require.NoError(t, uow.RegisterNew(req))
	require.NoError(t, uow.RegisterNew(ride))
	require.NoError(t, uow.Commit(ctx))
	return req, ride
}

func TestRideUpdateBumpsVersion(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	_, ride := seedRide(t, store)

	require.NoError(t, ride.Accept())
	uow := unitofwork.New(unitofwork.NewStoreMapper(store))
	require.NoError(t, uow.RegisterDirty(ride))
	require.NoError(t, uow.Commit(ctx))

	assert.Equal(t, int64(2), ride.Version())
	stored, err := store.Rides().FindByID(ctx, ride.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version())
	assert.Equal(t, domain.StatusAccepted, stored.Status())
}

func TestStaleRideUpdateIsConcurrentModification(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedRide(t, store)

	first, _ := store.Rides().FindByID(ctx, "ride-1")
	second, _ := store.Rides().FindByID(ctx, "ride-1")

	require.NoError(t, first.Accept())
	uow := unitofwork.New(unitofwork.NewStoreMapper(store))
	require.NoError(t, uow.RegisterDirty(first))
	require.NoError(t, uow.Commit(ctx))

	require.NoError(t, second.Accept())
	uow = unitofwork.New(unitofwork.NewStoreMapper(store))
	require.NoError(t, uow.RegisterDirty(second))
	err := uow.Commit(ctx)

	require.ErrorIs(t, err, domain.ErrConcurrentModification)
	assert.Contains(t, err.Error(), "expected version 1")
}

func TestWalletUpdateIsBalanceChecked(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Wallets().Ensure(ctx, "u1"))

	w, err := store.Wallets().FindByUser(ctx, "u1")
	require.NoError(t, err)
	stale, _ := store.Wallets().FindByUser(ctx, "u1")

	require.NoError(t, w.Credit(domain.Dollars(10)))
	uow := unitofwork.New(unitofwork.NewStoreMapper(store))
	require.NoError(t, uow.RegisterDirty(w))
	require.NoError(t, uow.Commit(ctx))
	assert.Equal(t, w.Balance(), w.LoadedBalance())

	require.NoError(t, stale.Credit(domain.Dollars(5)))
	uow = unitofwork.New(unitofwork.NewStoreMapper(store))
	require.NoError(t, uow.RegisterDirty(stale))
	assert.ErrorIs(t, uow.Commit(ctx), domain.ErrConcurrentModification)

	got, _ := store.Wallets().FindByUser(ctx, "u1")
	assert.Equal(t, domain.Dollars(10), got.Balance())
}

func TestUnsupportedEntity(t *testing.T) {
	store := memory.NewStore()
	uow := unitofwork.New(unitofwork.NewStoreMapper(store))
	w := domain.ReconstructWallet("u1", 0)
	require.NoError(t, uow.RegisterRemoved(w))

	err := uow.Commit(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no mapper")
}
