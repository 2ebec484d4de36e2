package postgres

import (
	"context"

	"rideshare/internal/ride-service/domain"

	"github.com/jackc/pgx/v5"
)

const requestColumns = `
	id, rider_id, pickup_address, pickup_postcode, dropoff_address, dropoff_postcode,
	requested_at, status, driver_id, updated_at`

func scanRequest(row pgx.Row) (*domain.RideRequest, error) {
	var rec requestRecord
	err := row.Scan(
		&rec.ID, &rec.RiderID, &rec.PickupAddress, &rec.PickupPostcode,
		&rec.DropoffAddress, &rec.DropoffPostcode,
		&rec.RequestedAt, &rec.Status, &rec.DriverID, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return fromRequestRecord(rec)
}

type requestRepo struct {
	q querier
}

func (r *requestRepo) Insert(ctx context.Context, req *domain.RideRequest) error {
	rec := toRequestRecord(req)
	_, err := r.q.Exec(ctx, `
		INSERT INTO ride_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		rec.ID, rec.RiderID, rec.PickupAddress, rec.PickupPostcode,
		rec.DropoffAddress, rec.DropoffPostcode,
		rec.RequestedAt, rec.Status, rec.DriverID, rec.UpdatedAt,
	)
	if err != nil {
		return translate(err, "ride request", rec.ID, "insert")
	}
	return nil
}

func (r *requestRepo) Update(ctx context.Context, req *domain.RideRequest) error {
	rec := toRequestRecord(req)
	tag, err := r.q.Exec(ctx, `
		UPDATE ride_requests
		SET status = $2, driver_id = $3, updated_at = $4
		WHERE id = $1
	`, rec.ID, rec.Status, rec.DriverID, rec.UpdatedAt)
	if err != nil {
		return translate(err, "ride request", rec.ID, "update")
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("ride request", rec.ID)
	}
	return nil
}

func (r *requestRepo) FindByID(ctx context.Context, id string) (*domain.RideRequest, error) {
	req, err := scanRequest(r.q.QueryRow(ctx, `SELECT `+requestColumns+` FROM ride_requests WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, "ride request", id, "query")
	}
	return req, nil
}

func (r *requestRepo) FindAll(ctx context.Context) ([]*domain.RideRequest, error) {
	return r.list(ctx, `SELECT `+requestColumns+` FROM ride_requests ORDER BY requested_at, id`)
}

func (r *requestRepo) FindByRider(ctx context.Context, riderID string) ([]*domain.RideRequest, error) {
	return r.list(ctx, `
		SELECT `+requestColumns+` FROM ride_requests
		WHERE rider_id = $1
		ORDER BY requested_at DESC, id DESC
	`, riderID)
}

func (r *requestRepo) list(ctx context.Context, sql string, args ...any) ([]*domain.RideRequest, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate(err, "ride requests", "", "query")
	}
	defer rows.Close()

	var out []*domain.RideRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, translate(err, "ride request", "", "scan")
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "ride requests", "", "iterate")
	}
	return out, nil
}

func (r *requestRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM ride_requests WHERE id = $1`, id)
	if err != nil {
		return translate(err, "ride request", id, "delete")
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("ride request", id)
	}
	return nil
}

func (r *requestRepo) LockForUpdate(ctx context.Context, id string) error {
	var locked string
	err := r.q.QueryRow(ctx, `SELECT id FROM ride_requests WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		return translate(err, "ride request", id, "lock")
	}
	return nil
}

const rideColumns = `
	id, request_id, rider_id, driver_id, pickup_address, pickup_postcode,
	dropoff_address, dropoff_postcode, status, fare_cents, scheduled_at,
	started_at, completed_at, cancelled_at, created_at, updated_at, version`

func scanRide(row pgx.Row) (*domain.Ride, error) {
	var rec rideRecord
	err := row.Scan(
		&rec.ID, &rec.RequestID, &rec.RiderID, &rec.DriverID,
		&rec.PickupAddress, &rec.PickupPostcode, &rec.DropoffAddress, &rec.DropoffPostcode,
		&rec.Status, &rec.FareCents, &rec.ScheduledAt,
		&rec.StartedAt, &rec.CompletedAt, &rec.CancelledAt,
		&rec.CreatedAt, &rec.UpdatedAt, &rec.Version,
	)
	if err != nil {
		return nil, err
	}
	return fromRideRecord(rec)
}

type rideRepo struct {
	q querier
}

func (r *rideRepo) Insert(ctx context.Context, ride *domain.Ride) error {
	rec := toRideRecord(ride)
	_, err := r.q.Exec(ctx, `
		INSERT INTO rides (`+rideColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`,
		rec.ID, rec.RequestID, rec.RiderID, rec.DriverID,
		rec.PickupAddress, rec.PickupPostcode, rec.DropoffAddress, rec.DropoffPostcode,
		rec.Status, rec.FareCents, rec.ScheduledAt,
		rec.StartedAt, rec.CompletedAt, rec.CancelledAt,
		rec.CreatedAt, rec.UpdatedAt, rec.Version,
	)
	if err != nil {
		return translate(err, "ride", rec.ID, "insert")
	}
	return nil
}

// Update writes the mutable columns without a version check.
func (r *rideRepo) Update(ctx context.Context, ride *domain.Ride) error {
	rec := toRideRecord(ride)
	tag, err := r.q.Exec(ctx, `
		UPDATE rides
		SET status = $2, started_at = $3, completed_at = $4, cancelled_at = $5,
			updated_at = $6, version = version + 1
		WHERE id = $1
	`, rec.ID, rec.Status, rec.StartedAt, rec.CompletedAt, rec.CancelledAt, rec.UpdatedAt)
	if err != nil {
		return translate(err, "ride", rec.ID, "update")
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("ride", rec.ID)
	}
	return nil
}

func (r *rideRepo) UpdateWithVersion(ctx context.Context, ride *domain.Ride) (int64, error) {
	rec := toRideRecord(ride)
	tag, err := r.q.Exec(ctx, `
		UPDATE rides
		SET status = $3, started_at = $4, completed_at = $5, cancelled_at = $6,
			updated_at = $7, version = version + 1
		WHERE id = $1 AND version = $2
	`, rec.ID, rec.Version, rec.Status, rec.StartedAt, rec.CompletedAt, rec.CancelledAt, rec.UpdatedAt)
	if err != nil {
		return 0, translate(err, "ride", rec.ID, "update")
	}
	return tag.RowsAffected(), nil
}

func (r *rideRepo) FindByID(ctx context.Context, id string) (*domain.Ride, error) {
	ride, err := scanRide(r.q.QueryRow(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err, "ride", id, "query")
	}
	return ride, nil
}

func (r *rideRepo) FindAll(ctx context.Context) ([]*domain.Ride, error) {
	return r.list(ctx, `SELECT `+rideColumns+` FROM rides ORDER BY created_at, id`)
}

func (r *rideRepo) FindByRequest(ctx context.Context, requestID string) (*domain.Ride, error) {
	ride, err := scanRide(r.q.QueryRow(ctx, `SELECT `+rideColumns+` FROM rides WHERE request_id = $1`, requestID))
	if err != nil {
		return nil, translate(err, "ride for request", requestID, "query")
	}
	return ride, nil
}

func (r *rideRepo) FindByDriver(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	return r.list(ctx, `SELECT `+rideColumns+` FROM rides WHERE driver_id = $1 ORDER BY created_at, id`, driverID)
}

func (r *rideRepo) list(ctx context.Context, sql string, args ...any) ([]*domain.Ride, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate(err, "rides", "", "query")
	}
	defer rows.Close()

	var out []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, translate(err, "ride", "", "scan")
		}
		out = append(out, ride)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "rides", "", "iterate")
	}
	return out, nil
}

func (r *rideRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM rides WHERE id = $1`, id)
	if err != nil {
		return translate(err, "ride", id, "delete")
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("ride", id)
	}
	return nil
}

func (r *rideRepo) LockForUpdate(ctx context.Context, id string) (int64, error) {
	var version int64
	err := r.q.QueryRow(ctx, `SELECT version FROM rides WHERE id = $1 FOR UPDATE`, id).Scan(&version)
	if err != nil {
		return 0, translate(err, "ride", id, "lock")
	}
	return version, nil
}
