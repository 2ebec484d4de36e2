// Package postgres is the pgx storage collaborator. Rides carry a version
// column; transitions lock their rows with SELECT ... FOR UPDATE inside a
// transaction opened by Store.WithinTx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"rideshare/internal/ride-service/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx. Begin on a transaction
// opens a savepoint.
type querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// session binds the repositories to one querier.
type session struct {
	q querier
}

func (s session) Requests() domain.RideRequestRepository      { return &requestRepo{q: s.q} }
func (s session) Rides() domain.RideRepository                { return &rideRepo{q: s.q} }
func (s session) Riders() domain.RiderRepository              { return &riderRepo{q: s.q} }
func (s session) Drivers() domain.DriverRepository            { return &driverRepo{q: s.q} }
func (s session) Availability() domain.AvailabilityRepository { return &availabilityRepo{q: s.q} }
func (s session) Wallets() domain.WalletRepository            { return &walletRepo{q: s.q} }
func (s session) Payments() domain.PaymentRepository          { return &paymentRepo{q: s.q} }

// Store implements domain.TxStore on a connection pool.
type Store struct {
	session
	db *pgxpool.Pool
}

// NewStore creates a new PostgreSQL store
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{session: session{q: db}, db: db}
}

// WithinTx runs fn in a READ COMMITTED transaction. Row locks taken with
// LockForUpdate are held until fn returns.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Store) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, session{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translate(err, "transaction", "", "commit")
	}
	return nil
}

// SQLSTATE codes the store distinguishes.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
)

// translate turns driver errors into domain errors where one fits and wraps
// the rest with the failed verb.
func translate(err error, entity, id, verb string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewNotFoundError(entity, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected:
			return &domain.ConcurrentModificationError{Entity: entity, ID: id, Cause: err}
		case codeUniqueViolation:
			return domain.NewValidationError("id", fmt.Sprintf("%s %s already exists", entity, id))
		case codeForeignKeyViolation:
			return domain.NewValidationError(pgErr.ColumnName, fmt.Sprintf("%s %s references a missing row (%s)", entity, id, pgErr.ConstraintName))
		}
	}
	return fmt.Errorf("%s %s: %w", verb, entity, err)
}
