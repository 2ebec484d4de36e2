package postgres

import (
	"context"
	"fmt"
	"time"

	"rideshare/internal/ride-service/domain"
)

type riderRepo struct {
	q querier
}

func (r *riderRepo) Insert(ctx context.Context, rider *domain.Rider) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO riders (id, name, email, created_at) VALUES ($1, $2, $3, $4)
	`, rider.ID(), rider.Name(), rider.Email(), rider.CreatedAt())
	if err != nil {
		return translate(err, "rider", rider.ID(), "insert")
	}
	return nil
}

func (r *riderRepo) FindByID(ctx context.Context, id string) (*domain.Rider, error) {
	var (
		name, email string
		createdAt   time.Time
	)
	err := r.q.QueryRow(ctx, `SELECT name, email, created_at FROM riders WHERE id = $1`, id).
		Scan(&name, &email, &createdAt)
	if err != nil {
		return nil, translate(err, "rider", id, "query")
	}
	return domain.ReconstructRider(id, name, email, createdAt), nil
}

func (r *riderRepo) FindAll(ctx context.Context) ([]*domain.Rider, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, email, created_at FROM riders ORDER BY id`)
	if err != nil {
		return nil, translate(err, "riders", "", "query")
	}
	defer rows.Close()

	var out []*domain.Rider
	for rows.Next() {
		var (
			id, name, email string
			createdAt       time.Time
		)
		if err := rows.Scan(&id, &name, &email, &createdAt); err != nil {
			return nil, translate(err, "rider", "", "scan")
		}
		out = append(out, domain.ReconstructRider(id, name, email, createdAt))
	}
	return out, rows.Err()
}

type driverRepo struct {
	q querier
}

func (r *driverRepo) Insert(ctx context.Context, driver *domain.Driver) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO drivers (id, name, email, vehicle, created_at) VALUES ($1, $2, $3, $4, $5)
	`, driver.ID(), driver.Name(), driver.Email(), driver.Vehicle(), driver.CreatedAt())
	if err != nil {
		return translate(err, "driver", driver.ID(), "insert")
	}
	return nil
}

func (r *driverRepo) FindByID(ctx context.Context, id string) (*domain.Driver, error) {
	var (
		name, email, vehicle string
		createdAt            time.Time
	)
	err := r.q.QueryRow(ctx, `SELECT name, email, vehicle, created_at FROM drivers WHERE id = $1`, id).
		Scan(&name, &email, &vehicle, &createdAt)
	if err != nil {
		return nil, translate(err, "driver", id, "query")
	}
	return domain.ReconstructDriver(id, name, email, vehicle, createdAt), nil
}

func (r *driverRepo) FindAll(ctx context.Context) ([]*domain.Driver, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, email, vehicle, created_at FROM drivers ORDER BY id`)
	if err != nil {
		return nil, translate(err, "drivers", "", "query")
	}
	defer rows.Close()

	var out []*domain.Driver
	for rows.Next() {
		var (
			id, name, email, vehicle string
			createdAt                time.Time
		)
		if err := rows.Scan(&id, &name, &email, &vehicle, &createdAt); err != nil {
			return nil, translate(err, "driver", "", "scan")
		}
		out = append(out, domain.ReconstructDriver(id, name, email, vehicle, createdAt))
	}
	return out, rows.Err()
}

type availabilityRepo struct {
	q querier
}

func (r *availabilityRepo) FindByDriver(ctx context.Context, driverID string) (*domain.AvailabilitySchedule, error) {
	rows, err := r.q.Query(ctx, `
		SELECT day, start_sec, end_sec FROM availability_windows
		WHERE driver_id = $1
		ORDER BY day, start_sec
	`, driverID)
	if err != nil {
		return nil, translate(err, "availability", driverID, "query")
	}
	defer rows.Close()

	var recs []windowRecord
	for rows.Next() {
		var rec windowRecord
		if err := rows.Scan(&rec.Day, &rec.StartSec, &rec.EndSec); err != nil {
			return nil, translate(err, "availability", driverID, "scan")
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "availability", driverID, "iterate")
	}
	return fromWindowRecords(driverID, recs)
}

// Replace deletes every window of the driver and inserts the new set in
// one transaction (a savepoint when already inside one).
func (r *availabilityRepo) Replace(ctx context.Context, schedule *domain.AvailabilitySchedule) error {
	driverID := schedule.DriverID()

	tx, err := r.q.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM drivers WHERE id = $1)`, driverID).Scan(&exists); err != nil {
		return translate(err, "driver", driverID, "query")
	}
	if !exists {
		return domain.NewNotFoundError("driver", driverID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM availability_windows WHERE driver_id = $1`, driverID); err != nil {
		return translate(err, "availability", driverID, "delete")
	}
	for _, rec := range toWindowRecords(schedule) {
		_, err := tx.Exec(ctx, `
			INSERT INTO availability_windows (driver_id, day, start_sec, end_sec)
			VALUES ($1, $2, $3, $4)
		`, driverID, rec.Day, rec.StartSec, rec.EndSec)
		if err != nil {
			return translate(err, "availability", driverID, "insert")
		}
	}

	return tx.Commit(ctx)
}

type walletRepo struct {
	q querier
}

func (r *walletRepo) Ensure(ctx context.Context, userID string) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO wallets (user_id, balance_cents) VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return translate(err, "wallet", userID, "insert")
	}
	return nil
}

func (r *walletRepo) FindByUser(ctx context.Context, userID string) (*domain.Wallet, error) {
	var cents int64
	err := r.q.QueryRow(ctx, `SELECT balance_cents FROM wallets WHERE user_id = $1`, userID).Scan(&cents)
	if err != nil {
		return nil, translate(err, "wallet", userID, "query")
	}
	return domain.ReconstructWallet(userID, domain.Money(cents)), nil
}

func (r *walletRepo) UpdateBalanceConditional(ctx context.Context, userID string, expected, next domain.Money) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE wallets SET balance_cents = $3
		WHERE user_id = $1 AND balance_cents = $2
	`, userID, int64(expected), int64(next))
	if err != nil {
		return 0, translate(err, "wallet", userID, "update")
	}
	return tag.RowsAffected(), nil
}

type paymentRepo struct {
	q querier
}

func (r *paymentRepo) Insert(ctx context.Context, p *domain.Payment) error {
	rec := toPaymentRecord(p)
	_, err := r.q.Exec(ctx, `
		INSERT INTO payments (id, ride_id, payer_id, payee_id, amount_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.RideID, rec.PayerID, rec.PayeeID, rec.AmountCents, rec.CreatedAt)
	if err != nil {
		return translate(err, "payment", rec.ID, "insert")
	}
	return nil
}

func (r *paymentRepo) FindByRide(ctx context.Context, rideID string) ([]*domain.Payment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, ride_id, payer_id, payee_id, amount_cents, created_at
		FROM payments WHERE ride_id = $1
		ORDER BY created_at, id
	`, rideID)
	if err != nil {
		return nil, translate(err, "payments", rideID, "query")
	}
	defer rows.Close()

	var out []*domain.Payment
	for rows.Next() {
		var rec paymentRecord
		if err := rows.Scan(&rec.ID, &rec.RideID, &rec.PayerID, &rec.PayeeID, &rec.AmountCents, &rec.CreatedAt); err != nil {
			return nil, translate(err, "payment", rideID, "scan")
		}
		out = append(out, fromPaymentRecord(rec))
	}
	return out, rows.Err()
}
