package domain

import (
	"strings"
	"time"
)

// RideRequest is a rider's ask for a trip. Its driver is set by AssignDriver
// and kept through every later state, including a cancellation after matching.
type RideRequest struct {
	id          string
	riderID     string
	pickup      Location
	dropoff     Location
	requestedAt time.Time
	status      RideStatus
	driverID    string
	updatedAt   time.Time
}

// NewRideRequest creates a request in REQUESTED.
func NewRideRequest(id, riderID string, pickup, dropoff Location, requestedAt time.Time) (*RideRequest, error) {
	if strings.TrimSpace(id) == "" {
		return nil, NewValidationError("id", "must not be empty")
	}
	if strings.TrimSpace(riderID) == "" {
		return nil, NewValidationError("rider_id", "must not be empty")
	}
	if pickup.Address() == "" {
		return nil, NewValidationError("pickup", "must not be empty")
	}
	if dropoff.Address() == "" {
		return nil, NewValidationError("dropoff", "must not be empty")
	}
	if requestedAt.IsZero() {
		return nil, NewValidationError("requested_at", "must be set")
	}

	return &RideRequest{
		id:          id,
		riderID:     riderID,
		pickup:      pickup,
		dropoff:     dropoff,
		requestedAt: requestedAt,
		status:      StatusRequested,
		updatedAt:   requestedAt,
	}, nil
}

// ReconstructRideRequest rebuilds a request from storage.
func ReconstructRideRequest(
	id string,
	riderID string,
	pickup Location,
	dropoff Location,
	requestedAt time.Time,
	status RideStatus,
	driverID string,
	updatedAt time.Time,
) *RideRequest {
	return &RideRequest{
		id:          id,
		riderID:     riderID,
		pickup:      pickup,
		dropoff:     dropoff,
		requestedAt: requestedAt,
		status:      status,
		driverID:    driverID,
		updatedAt:   updatedAt,
	}
}

func (r *RideRequest) transition(to RideStatus) error {
	if !requestTransitions.allows(r.status, to) {
		return &InvalidStateTransitionError{
			Entity:   "ride request",
			ID:       r.id,
			Expected: requestTransitions.expectedFor(to),
			Actual:   r.status,
		}
	}
	r.status = to
	r.updatedAt = time.Now()
	return nil
}

// AssignDriver moves REQUESTED -> MATCHED.
func (r *RideRequest) AssignDriver(driverID string) error {
	if strings.TrimSpace(driverID) == "" {
		return NewValidationError("driver_id", "must not be empty")
	}
	if err := r.transition(StatusMatched); err != nil {
		return err
	}
	r.driverID = driverID
	return nil
}

func (r *RideRequest) MarkAccepted() error   { return r.transition(StatusAccepted) }
func (r *RideRequest) MarkInProgress() error { return r.transition(StatusInProgress) }
func (r *RideRequest) MarkCompleted() error  { return r.transition(StatusCompleted) }

// Cancel is allowed from every state except COMPLETED and CANCELLED.
func (r *RideRequest) Cancel() error { return r.transition(StatusCancelled) }

// IsOpen reports whether the request still waits for a driver to accept.
func (r *RideRequest) IsOpen() bool {
	return r.status == StatusRequested || r.status == StatusMatched
}

func (r *RideRequest) HasDriver() bool { return r.driverID != "" }

func (r *RideRequest) ID() string             { return r.id }
func (r *RideRequest) RiderID() string        { return r.riderID }
func (r *RideRequest) Pickup() Location       { return r.pickup }
func (r *RideRequest) Dropoff() Location      { return r.dropoff }
func (r *RideRequest) RequestedAt() time.Time { return r.requestedAt }
func (r *RideRequest) Status() RideStatus     { return r.status }
func (r *RideRequest) DriverID() string       { return r.driverID }
func (r *RideRequest) UpdatedAt() time.Time   { return r.updatedAt }

// EntityKey identifies the request inside a unit of work.
func (r *RideRequest) EntityKey() string { return "request:" + r.id }
