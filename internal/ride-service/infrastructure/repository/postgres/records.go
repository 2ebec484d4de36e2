package postgres

import (
	"fmt"
	"time"

	"rideshare/internal/ride-service/domain"
)

// Row shapes of each table. The to*/from* pairs are the only place where
// domain entities and columns meet.

type requestRecord struct {
	ID              string
	RiderID         string
	PickupAddress   string
	PickupPostcode  string
	DropoffAddress  string
	DropoffPostcode string
	RequestedAt     time.Time
	Status          string
	DriverID        *string
	UpdatedAt       time.Time
}

func toRequestRecord(r *domain.RideRequest) requestRecord {
	return requestRecord{
		ID:              r.ID(),
		RiderID:         r.RiderID(),
		PickupAddress:   r.Pickup().Address(),
		PickupPostcode:  r.Pickup().Postcode(),
		DropoffAddress:  r.Dropoff().Address(),
		DropoffPostcode: r.Dropoff().Postcode(),
		RequestedAt:     r.RequestedAt(),
		Status:          r.Status().String(),
		DriverID:        nullable(r.DriverID()),
		UpdatedAt:       r.UpdatedAt(),
	}
}

func fromRequestRecord(rec requestRecord) (*domain.RideRequest, error) {
	pickup, dropoff, err := locations(rec.PickupAddress, rec.PickupPostcode, rec.DropoffAddress, rec.DropoffPostcode)
	if err != nil {
		return nil, fmt.Errorf("ride request %s: %w", rec.ID, err)
	}
	status, err := domain.ParseRideStatus(rec.Status)
	if err != nil {
		return nil, fmt.Errorf("ride request %s: %w", rec.ID, err)
	}
	return domain.ReconstructRideRequest(
		rec.ID,
		rec.RiderID,
		pickup,
		dropoff,
		rec.RequestedAt,
		status,
		deref(rec.DriverID),
		rec.UpdatedAt,
	), nil
}

type rideRecord struct {
	ID              string
	RequestID       string
	RiderID         string
	DriverID        string
	PickupAddress   string
	PickupPostcode  string
	DropoffAddress  string
	DropoffPostcode string
	Status          string
	FareCents       int64
	ScheduledAt     time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	CancelledAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
}

func toRideRecord(r *domain.Ride) rideRecord {
	return rideRecord{
		ID:              r.ID(),
		RequestID:       r.RequestID(),
		RiderID:         r.RiderID(),
		DriverID:        r.DriverID(),
		PickupAddress:   r.Pickup().Address(),
		PickupPostcode:  r.Pickup().Postcode(),
		DropoffAddress:  r.Dropoff().Address(),
		DropoffPostcode: r.Dropoff().Postcode(),
		Status:          r.Status().String(),
		FareCents:       int64(r.Fare()),
		ScheduledAt:     r.ScheduledAt(),
		StartedAt:       r.StartedAt(),
		CompletedAt:     r.CompletedAt(),
		CancelledAt:     r.CancelledAt(),
		CreatedAt:       r.CreatedAt(),
		UpdatedAt:       r.UpdatedAt(),
		Version:         r.Version(),
	}
}

func fromRideRecord(rec rideRecord) (*domain.Ride, error) {
	pickup, dropoff, err := locations(rec.PickupAddress, rec.PickupPostcode, rec.DropoffAddress, rec.DropoffPostcode)
	if err != nil {
		return nil, fmt.Errorf("ride %s: %w", rec.ID, err)
	}
	status, err := domain.ParseRideStatus(rec.Status)
	if err != nil {
		return nil, fmt.Errorf("ride %s: %w", rec.ID, err)
	}
	return domain.ReconstructRide(
		rec.ID,
		rec.RequestID,
		rec.RiderID,
		rec.DriverID,
		pickup,
		dropoff,
		status,
		domain.Money(rec.FareCents),
		rec.ScheduledAt,
		rec.StartedAt,
		rec.CompletedAt,
		rec.CancelledAt,
		rec.CreatedAt,
		rec.UpdatedAt,
		rec.Version,
	), nil
}

type windowRecord struct {
	Day      int16
	StartSec int32
	EndSec   int32
}

func toWindowRecords(s *domain.AvailabilitySchedule) []windowRecord {
	windows := s.Windows()
	out := make([]windowRecord, 0, len(windows))
	for _, w := range windows {
		out = append(out, windowRecord{
			Day:      int16(w.Day()),
			StartSec: int32(w.Start()),
			EndSec:   int32(w.End()),
		})
	}
	return out
}

func fromWindowRecords(driverID string, recs []windowRecord) (*domain.AvailabilitySchedule, error) {
	windows := make([]domain.AvailabilityWindow, 0, len(recs))
	for _, rec := range recs {
		w, err := domain.NewAvailabilityWindow(time.Weekday(rec.Day), domain.TimeOfDay(rec.StartSec), domain.TimeOfDay(rec.EndSec))
		if err != nil {
			return nil, fmt.Errorf("availability of driver %s: %w", driverID, err)
		}
		windows = append(windows, w)
	}
	return domain.NewAvailabilitySchedule(driverID, windows), nil
}

type paymentRecord struct {
	ID          string
	RideID      string
	PayerID     string
	PayeeID     string
	AmountCents int64
	CreatedAt   time.Time
}

func toPaymentRecord(p *domain.Payment) paymentRecord {
	return paymentRecord{
		ID:          p.ID(),
		RideID:      p.RideID(),
		PayerID:     p.PayerID(),
		PayeeID:     p.PayeeID(),
		AmountCents: int64(p.Amount()),
		CreatedAt:   p.CreatedAt(),
	}
}

func fromPaymentRecord(rec paymentRecord) *domain.Payment {
	return domain.ReconstructPayment(rec.ID, rec.RideID, rec.PayerID, rec.PayeeID, domain.Money(rec.AmountCents), rec.CreatedAt)
}

func locations(pickupAddr, pickupPostcode, dropoffAddr, dropoffPostcode string) (domain.Location, domain.Location, error) {
	pickup, err := domain.NewLocation(pickupAddr, pickupPostcode)
	if err != nil {
		return domain.Location{}, domain.Location{}, err
	}
	dropoff, err := domain.NewLocation(dropoffAddr, dropoffPostcode)
	if err != nil {
		return domain.Location{}, domain.Location{}, err
	}
	return pickup, dropoff, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
