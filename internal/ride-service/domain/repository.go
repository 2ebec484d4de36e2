package domain

import "context"

// Storage ports. Implementations live in infrastructure/repository.
//
// Every Find* returns a *NotFoundError when the row is missing. Update and
// Delete do the same when no row matched.

type RideRequestRepository interface {
	Insert(ctx context.Context, req *RideRequest) error
	Update(ctx context.Context, req *RideRequest) error
	FindByID(ctx context.Context, id string) (*RideRequest, error)
	FindAll(ctx context.Context) ([]*RideRequest, error)

	// FindByRider returns the rider's requests, newest first.
	FindByRider(ctx context.Context, riderID string) ([]*RideRequest, error)
	Delete(ctx context.Context, id string) error

	// LockForUpdate takes the row lock for the surrounding transaction.
	LockForUpdate(ctx context.Context, id string) error
}

type RideRepository interface {
	Insert(ctx context.Context, ride *Ride) error
	Update(ctx context.Context, ride *Ride) error

	// UpdateWithVersion writes ride only if the stored version equals
	// ride.Version(), bumping the stored version by one. It returns the number
	// of rows affected; zero means another writer got there first.
	UpdateWithVersion(ctx context.Context, ride *Ride) (int64, error)

	FindByID(ctx context.Context, id string) (*Ride, error)
	FindAll(ctx context.Context) ([]*Ride, error)
	FindByRequest(ctx context.Context, requestID string) (*Ride, error)
	FindByDriver(ctx context.Context, driverID string) ([]*Ride, error)
	Delete(ctx context.Context, id string) error

	// LockForUpdate takes the row lock for the surrounding transaction and
	// returns the version it saw.
	LockForUpdate(ctx context.Context, id string) (int64, error)
}

type RiderRepository interface {
	Insert(ctx context.Context, rider *Rider) error
	FindByID(ctx context.Context, id string) (*Rider, error)
	FindAll(ctx context.Context) ([]*Rider, error)
}

type DriverRepository interface {
	Insert(ctx context.Context, driver *Driver) error
	FindByID(ctx context.Context, id string) (*Driver, error)

	// FindAll returns drivers in a stable order (by id).
	FindAll(ctx context.Context) ([]*Driver, error)
}

type AvailabilityRepository interface {
	// FindByDriver returns an empty schedule for a driver with no windows.
	FindByDriver(ctx context.Context, driverID string) (*AvailabilitySchedule, error)

	// Replace deletes every window of the driver and inserts the new ones.
	Replace(ctx context.Context, schedule *AvailabilitySchedule) error
}

type WalletRepository interface {
	// Ensure creates a zero-balance wallet if none exists.
	Ensure(ctx context.Context, userID string) error
	FindByUser(ctx context.Context, userID string) (*Wallet, error)

	// UpdateBalanceConditional sets the balance to next only while it still
	// equals expected. It returns the rows affected.
	UpdateBalanceConditional(ctx context.Context, userID string, expected, next Money) (int64, error)
}

type PaymentRepository interface {
	Insert(ctx context.Context, payment *Payment) error
	FindByRide(ctx context.Context, rideID string) ([]*Payment, error)
}

// Store groups the repositories that share one storage session.
type Store interface {
	Requests() RideRequestRepository
	Rides() RideRepository
	Riders() RiderRepository
	Drivers() DriverRepository
	Availability() AvailabilityRepository
	Wallets() WalletRepository
	Payments() PaymentRepository
}

// TxStore is a Store that can open a transaction. Everything fn does through
// tx commits together or not at all.
type TxStore interface {
	Store
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
