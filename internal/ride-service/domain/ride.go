package domain

import (
	"time"
)

// Ride is the trip created when a request is matched. It is persisted with a
// version that grows by one on every successful update.
type Ride struct {
	id          string
	requestID   string
	riderID     string
	driverID    string
	pickup      Location
	dropoff     Location
	status      RideStatus
	fare        Money
	scheduledAt time.Time
	startedAt   *time.Time
	completedAt *time.Time
	cancelledAt *time.Time
	createdAt   time.Time
	updatedAt   time.Time
	version     int64
}

// NewRideFromRequest creates a ride in MATCHED mirroring a matched request.
func NewRideFromRequest(id string, req *RideRequest, fare Money) (*Ride, error) {
	if id == "" {
		return nil, NewValidationError("id", "must not be empty")
	}
	if req.Status() != StatusMatched {
		return nil, &InvalidStateTransitionError{
			Entity:   "ride request",
			ID:       req.ID(),
			Expected: string(StatusMatched),
			Actual:   req.Status(),
		}
	}
	if !req.HasDriver() {
		return nil, NewValidationError("driver_id", "matched request has no driver")
	}
	if fare < 0 {
		return nil, NewValidationError("fare", "must not be negative")
	}

	now := time.Now()
	return &Ride{
		id:          id,
		requestID:   req.ID(),
		riderID:     req.RiderID(),
		driverID:    req.DriverID(),
		pickup:      req.Pickup(),
		dropoff:     req.Dropoff(),
		status:      StatusMatched,
		fare:        fare,
		scheduledAt: req.RequestedAt(),
		createdAt:   now,
		updatedAt:   now,
		version:     1,
	}, nil
}

// ReconstructRide rebuilds a ride from storage.
func ReconstructRide(
	id string,
	requestID string,
	riderID string,
	driverID string,
	pickup Location,
	dropoff Location,
	status RideStatus,
	fare Money,
	scheduledAt time.Time,
	startedAt *time.Time,
	completedAt *time.Time,
	cancelledAt *time.Time,
	createdAt time.Time,
	updatedAt time.Time,
	version int64,
) *Ride {
	return &Ride{
		id:          id,
		requestID:   requestID,
		riderID:     riderID,
		driverID:    driverID,
		pickup:      pickup,
		dropoff:     dropoff,
		status:      status,
		fare:        fare,
		scheduledAt: scheduledAt,
		startedAt:   startedAt,
		completedAt: completedAt,
		cancelledAt: cancelledAt,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
		version:     version,
	}
}

func (r *Ride) transition(to RideStatus) (time.Time, error) {
	if !rideTransitions.allows(r.status, to) {
		return time.Time{}, &InvalidStateTransitionError{
			Entity:   "ride",
			ID:       r.id,
			Expected: rideTransitions.expectedFor(to),
			Actual:   r.status,
		}
	}
	now := time.Now()
	r.status = to
	r.updatedAt = now
	return now, nil
}

// Accept moves MATCHED -> ACCEPTED.
func (r *Ride) Accept() error {
	_, err := r.transition(StatusAccepted)
	return err
}

// Start moves ACCEPTED -> IN_PROGRESS and stamps the actual start.
func (r *Ride) Start() error {
	now, err := r.transition(StatusInProgress)
	if err != nil {
		return err
	}
	r.startedAt = &now
	return nil
}

// Complete moves IN_PROGRESS -> COMPLETED and stamps completion.
func (r *Ride) Complete() error {
	now, err := r.transition(StatusCompleted)
	if err != nil {
		return err
	}
	r.completedAt = &now
	return nil
}

// Cancel is allowed from MATCHED and ACCEPTED only.
func (r *Ride) Cancel() error {
	now, err := r.transition(StatusCancelled)
	if err != nil {
		return err
	}
	r.cancelledAt = &now
	return nil
}

func (r *Ride) CanBeCancelled() bool {
	return CanRideTransition(r.status, StatusCancelled)
}

// IsActive reports whether the ride has not reached a terminal state.
func (r *Ride) IsActive() bool { return !r.status.IsTerminal() }

// IsAssignedTo reports whether driverID is the ride's driver.
func (r *Ride) IsAssignedTo(driverID string) bool { return r.driverID == driverID }

func (r *Ride) ID() string              { return r.id }
func (r *Ride) RequestID() string       { return r.requestID }
func (r *Ride) RiderID() string         { return r.riderID }
func (r *Ride) DriverID() string        { return r.driverID }
func (r *Ride) Pickup() Location        { return r.pickup }
func (r *Ride) Dropoff() Location       { return r.dropoff }
func (r *Ride) Status() RideStatus      { return r.status }
func (r *Ride) Fare() Money             { return r.fare }
func (r *Ride) ScheduledAt() time.Time  { return r.scheduledAt }
func (r *Ride) StartedAt() *time.Time   { return r.startedAt }
func (r *Ride) CompletedAt() *time.Time { return r.completedAt }
func (r *Ride) CancelledAt() *time.Time { return r.cancelledAt }
func (r *Ride) CreatedAt() time.Time    { return r.createdAt }
func (r *Ride) UpdatedAt() time.Time    { return r.updatedAt }
func (r *Ride) Version() int64          { return r.version }

// SetVersion records the version storage assigned after a write.
func (r *Ride) SetVersion(v int64) {
	r.version = v
}

// EntityKey identifies the ride inside a unit of work.
func (r *Ride) EntityKey() string { return "ride:" + r.id }
