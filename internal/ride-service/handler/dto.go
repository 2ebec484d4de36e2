package handler

import (
	"time"

	"rideshare/internal/ride-service/domain"
	"rideshare/internal/ride-service/service"
)

type locationDTO struct {
	Address  string `json:"address"`
	Postcode string `json:"postcode,omitempty"`
}

func toLocation(l domain.Location) locationDTO {
	return locationDTO{Address: l.Address(), Postcode: l.Postcode()}
}

type requestDTO struct {
	ID          string      `json:"id"`
	RiderID     string      `json:"rider_id"`
	DriverID    string      `json:"driver_id,omitempty"`
	Pickup      locationDTO `json:"pickup"`
	Dropoff     locationDTO `json:"dropoff"`
	Status      string      `json:"status"`
	RequestedAt time.Time   `json:"requested_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func toRequest(r *domain.RideRequest) requestDTO {
	return requestDTO{
		ID:          r.ID(),
		RiderID:     r.RiderID(),
		DriverID:    r.DriverID(),
		Pickup:      toLocation(r.Pickup()),
		Dropoff:     toLocation(r.Dropoff()),
		Status:      r.Status().String(),
		RequestedAt: r.RequestedAt(),
		UpdatedAt:   r.UpdatedAt(),
	}
}

type rideDTO struct {
	ID          string      `json:"id"`
	RequestID   string      `json:"request_id"`
	RiderID     string      `json:"rider_id"`
	DriverID    string      `json:"driver_id"`
	Pickup      locationDTO `json:"pickup"`
	Dropoff     locationDTO `json:"dropoff"`
	Status      string      `json:"status"`
	Fare        string      `json:"fare"`
	FareCents   int64       `json:"fare_cents"`
	ScheduledAt time.Time   `json:"scheduled_at"`
	StartedAt   *time.Time  `json:"started_at,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	CancelledAt *time.Time  `json:"cancelled_at,omitempty"`
	Version     int64       `json:"version"`
}

func toRide(r *domain.Ride) rideDTO {
	return rideDTO{
		ID:          r.ID(),
		RequestID:   r.RequestID(),
		RiderID:     r.RiderID(),
		DriverID:    r.DriverID(),
		Pickup:      toLocation(r.Pickup()),
		Dropoff:     toLocation(r.Dropoff()),
		Status:      r.Status().String(),
		Fare:        r.Fare().String(),
		FareCents:   int64(r.Fare()),
		ScheduledAt: r.ScheduledAt(),
		StartedAt:   r.StartedAt(),
		CompletedAt: r.CompletedAt(),
		CancelledAt: r.CancelledAt(),
		Version:     r.Version(),
	}
}

type participantDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Vehicle   string    `json:"vehicle,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toRider(r *domain.Rider) participantDTO {
	return participantDTO{ID: r.ID(), Name: r.Name(), Email: r.Email(), CreatedAt: r.CreatedAt()}
}

func toDriver(d *domain.Driver) participantDTO {
	return participantDTO{ID: d.ID(), Name: d.Name(), Email: d.Email(), Vehicle: d.Vehicle(), CreatedAt: d.CreatedAt()}
}

type windowDTO struct {
	Day   string `json:"day" binding:"required"`
	Start string `json:"start" binding:"required"`
	End   string `json:"end" binding:"required"`
}

type scheduleDTO struct {
	DriverID string      `json:"driver_id"`
	Windows  []windowDTO `json:"windows"`
}

func toSchedule(s *domain.AvailabilitySchedule) scheduleDTO {
	out := scheduleDTO{DriverID: s.DriverID(), Windows: []windowDTO{}}
	for _, w := range s.Windows() {
		out.Windows = append(out.Windows, windowDTO{
			Day:   w.Day().String(),
			Start: w.Start().String(),
			End:   w.End().String(),
		})
	}
	return out
}

type walletDTO struct {
	UserID       string `json:"user_id"`
	Balance      string `json:"balance"`
	BalanceCents int64  `json:"balance_cents"`
}

func toWallet(w *domain.Wallet) walletDTO {
	return walletDTO{UserID: w.UserID(), Balance: w.Balance().String(), BalanceCents: int64(w.Balance())}
}

type paymentDTO struct {
	ID          string    `json:"id"`
	RideID      string    `json:"ride_id"`
	PayerID     string    `json:"payer_id"`
	PayeeID     string    `json:"payee_id"`
	Amount      string    `json:"amount"`
	AmountCents int64     `json:"amount_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

func toPayment(p *domain.Payment) paymentDTO {
	return paymentDTO{
		ID:          p.ID(),
		RideID:      p.RideID(),
		PayerID:     p.PayerID(),
		PayeeID:     p.PayeeID(),
		Amount:      p.Amount().String(),
		AmountCents: int64(p.Amount()),
		CreatedAt:   p.CreatedAt(),
	}
}

type overviewDTO struct {
	OpenRequests          int    `json:"open_requests"`
	ActiveRides           int    `json:"active_rides"`
	CompletedRides        int    `json:"completed_rides"`
	CancelledRides        int    `json:"cancelled_rides"`
	Drivers               int    `json:"drivers"`
	BusyDrivers           int    `json:"busy_drivers"`
	CompletedRevenue      string `json:"completed_revenue"`
	CompletedRevenueCents int64  `json:"completed_revenue_cents"`
}

func toOverview(o service.Overview) overviewDTO {
	return overviewDTO{
		OpenRequests:          o.OpenRequests,
		ActiveRides:           o.ActiveRides,
		CompletedRides:        o.CompletedRides,
		CancelledRides:        o.CancelledRides,
		Drivers:               o.Drivers,
		BusyDrivers:           o.BusyDrivers,
		CompletedRevenue:      o.CompletedRevenue.String(),
		CompletedRevenueCents: int64(o.CompletedRevenue),
	}
}

func mapSlice[T, D any](in []T, fn func(T) D) []D {
	out := make([]D, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}

type farePreviewDTO struct {
	PickupPostcode  string `json:"pickup_postcode"`
	DropoffPostcode string `json:"dropoff_postcode"`
	Fare            string `json:"fare"`
	FareCents       int64  `json:"fare_cents"`
}
