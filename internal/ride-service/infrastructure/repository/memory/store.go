// Package memory is an in-process storage collaborator. It keeps row
// versions, copies entities on every read and write, and rolls a failed
// transaction back through an undo log.
//
// Transactions are serialized against each other, which stands in for the
// row locks a database would take. Reads outside a transaction may observe
// writes of a transaction that has not finished yet.
package memory

import (
	"context"
	"sync"

	"rideshare/internal/ride-service/domain"
)

type tables struct {
	requests     map[string]*domain.RideRequest
	rides        map[string]*domain.Ride
	riders       map[string]*domain.Rider
	drivers      map[string]*domain.Driver
	availability map[string][]domain.AvailabilityWindow
	wallets      map[string]domain.Money
	payments     map[string]*domain.Payment
}

// Store implements domain.TxStore.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	t    tables
}

func NewStore() *Store {
	return &Store{t: tables{
		requests:     make(map[string]*domain.RideRequest),
		rides:        make(map[string]*domain.Ride),
		riders:       make(map[string]*domain.Rider),
		drivers:      make(map[string]*domain.Driver),
		availability: make(map[string][]domain.AvailabilityWindow),
		wallets:      make(map[string]domain.Money),
		payments:     make(map[string]*domain.Payment),
	}}
}

func (s *Store) Requests() domain.RideRequestRepository      { return &requestRepo{s: s} }
func (s *Store) Rides() domain.RideRepository                { return &rideRepo{s: s} }
func (s *Store) Riders() domain.RiderRepository              { return &riderRepo{s: s} }
func (s *Store) Drivers() domain.DriverRepository            { return &driverRepo{s: s} }
func (s *Store) Availability() domain.AvailabilityRepository { return &availabilityRepo{s: s} }
func (s *Store) Wallets() domain.WalletRepository            { return &walletRepo{s: s} }
func (s *Store) Payments() domain.PaymentRepository          { return &paymentRepo{s: s} }

// WithinTx runs fn with a view whose writes are undone if fn returns an
// error or panics.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	log := &undoLog{}
	defer func() {
		if p := recover(); p != nil {
			s.rollback(log)
			panic(p)
		}
	}()

	if err := fn(ctx, &txView{s: s, log: log}); err != nil {
		s.rollback(log)
		return err
	}
	return nil
}

func (s *Store) rollback(log *undoLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(log.undo) - 1; i >= 0; i-- {
		log.undo[i]()
	}
}

// txView is the Store handed to a transaction body.
type txView struct {
	s   *Store
	log *undoLog
}

func (v *txView) Requests() domain.RideRequestRepository { return &requestRepo{s: v.s, log: v.log} }
func (v *txView) Rides() domain.RideRepository           { return &rideRepo{s: v.s, log: v.log} }
func (v *txView) Riders() domain.RiderRepository         { return &riderRepo{s: v.s, log: v.log} }
func (v *txView) Drivers() domain.DriverRepository       { return &driverRepo{s: v.s, log: v.log} }
func (v *txView) Availability() domain.AvailabilityRepository {
	return &availabilityRepo{s: v.s, log: v.log}
}
func (v *txView) Wallets() domain.WalletRepository   { return &walletRepo{s: v.s, log: v.log} }
func (v *txView) Payments() domain.PaymentRepository { return &paymentRepo{s: v.s, log: v.log} }

// undoLog is nil outside a transaction.
type undoLog struct {
	undo []func()
}

// remember records how to restore m[k] to its current state. Call it with
// s.mu held, before the write.
func remember[K comparable, V any](log *undoLog, m map[K]V, k K) {
	if log == nil {
		return
	}
	old, existed := m[k]
	log.undo = append(log.undo, func() {
		if existed {
			m[k] = old
		} else {
			delete(m, k)
		}
	})
}
