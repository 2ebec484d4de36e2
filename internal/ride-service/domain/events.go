package domain

import "time"

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
	AggregateID() string
}

// RideRequestedEvent is raised when a rider submits a request
type RideRequestedEvent struct {
	RequestID   string
	RiderID     string
	Pickup      Location
	Dropoff     Location
	RequestedAt time.Time
}

func (e RideRequestedEvent) EventType() string     { return "ride.requested" }
func (e RideRequestedEvent) OccurredAt() time.Time { return e.RequestedAt }
func (e RideRequestedEvent) AggregateID() string   { return e.RequestID }

// RideMatchedEvent is raised when a driver is assigned and the ride created
type RideMatchedEvent struct {
	RideID    string
	RequestID string
	RiderID   string
	DriverID  string
	Fare      Money
	MatchedAt time.Time
}

func (e RideMatchedEvent) EventType() string     { return "ride.matched" }
func (e RideMatchedEvent) OccurredAt() time.Time { return e.MatchedAt }
func (e RideMatchedEvent) AggregateID() string   { return e.RideID }

// RideStatusChangedEvent covers accept, start and complete
type RideStatusChangedEvent struct {
	RideID    string
	RiderID   string
	DriverID  string
	OldStatus RideStatus
	NewStatus RideStatus
	Version   int64
	ChangedAt time.Time
}

func (e RideStatusChangedEvent) EventType() string {
	switch e.NewStatus {
	case StatusAccepted:
		return "ride.accepted"
	case StatusInProgress:
		return "ride.started"
	case StatusCompleted:
		return "ride.completed"
	case StatusCancelled:
		return "ride.cancelled"
	}
	return "ride.status.changed"
}
func (e RideStatusChangedEvent) OccurredAt() time.Time { return e.ChangedAt }
func (e RideStatusChangedEvent) AggregateID() string   { return e.RideID }

// RequestCancelledEvent is raised when a rider cancels a request
type RequestCancelledEvent struct {
	RequestID   string
	RiderID     string
	DriverID    string
	RideID      string
	OldStatus   RideStatus
	CancelledAt time.Time
}

func (e RequestCancelledEvent) EventType() string     { return "request.cancelled" }
func (e RequestCancelledEvent) OccurredAt() time.Time { return e.CancelledAt }
func (e RequestCancelledEvent) AggregateID() string   { return e.RequestID }

// PaymentSettledEvent is raised when a completed ride's fare has moved
type PaymentSettledEvent struct {
	PaymentID string
	RideID    string
	PayerID   string
	PayeeID   string
	Amount    Money
	SettledAt time.Time
}

func (e PaymentSettledEvent) EventType() string     { return "payment.settled" }
func (e PaymentSettledEvent) OccurredAt() time.Time { return e.SettledAt }
func (e PaymentSettledEvent) AggregateID() string   { return e.RideID }
