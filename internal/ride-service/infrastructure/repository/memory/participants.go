package memory

import (
	"context"
	"sort"
	"time"

	"rideshare/internal/ride-service/domain"
)

type riderRepo struct {
	s   *Store
	log *undoLog
}

func (r *riderRepo) Insert(_ context.Context, rider *domain.Rider) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.riders[rider.ID()]; ok {
		return domain.NewValidationError("id", "rider "+rider.ID()+" already exists")
	}
	remember(r.log, r.s.t.riders, rider.ID())
	cp := *rider
	r.s.t.riders[rider.ID()] = &cp
	return nil
}

func (r *riderRepo) FindByID(_ context.Context, id string) (*domain.Rider, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rider, ok := r.s.t.riders[id]
	if !ok {
		return nil, domain.NewNotFoundError("rider", id)
	}
	cp := *rider
	return &cp, nil
}

func (r *riderRepo) FindAll(_ context.Context) ([]*domain.Rider, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Rider, 0, len(r.s.t.riders))
	for _, rider := range r.s.t.riders {
		cp := *rider
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

type driverRepo struct {
	s   *Store
	log *undoLog
}

func (r *driverRepo) Insert(_ context.Context, driver *domain.Driver) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.drivers[driver.ID()]; ok {
		return domain.NewValidationError("id", "driver "+driver.ID()+" already exists")
	}
	remember(r.log, r.s.t.drivers, driver.ID())
	cp := *driver
	r.s.t.drivers[driver.ID()] = &cp
	return nil
}

func (r *driverRepo) FindByID(_ context.Context, id string) (*domain.Driver, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	driver, ok := r.s.t.drivers[id]
	if !ok {
		return nil, domain.NewNotFoundError("driver", id)
	}
	cp := *driver
	return &cp, nil
}

func (r *driverRepo) FindAll(_ context.Context) ([]*domain.Driver, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Driver, 0, len(r.s.t.drivers))
	for _, driver := range r.s.t.drivers {
		cp := *driver
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out, nil
}

type availabilityRepo struct {
	s   *Store
	log *undoLog
}

func (r *availabilityRepo) FindByDriver(_ context.Context, driverID string) (*domain.AvailabilitySchedule, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return domain.NewAvailabilitySchedule(driverID, r.s.t.availability[driverID]), nil
}

func (r *availabilityRepo) Replace(_ context.Context, schedule *domain.AvailabilitySchedule) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.drivers[schedule.DriverID()]; !ok {
		return domain.NewNotFoundError("driver", schedule.DriverID())
	}
	remember(r.log, r.s.t.availability, schedule.DriverID())
	r.s.t.availability[schedule.DriverID()] = schedule.Windows()
	return nil
}

type walletRepo struct {
	s   *Store
	log *undoLog
}

func (r *walletRepo) Ensure(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.wallets[userID]; ok {
		return nil
	}
	remember(r.log, r.s.t.wallets, userID)
	r.s.t.wallets[userID] = 0
	return nil
}

func (r *walletRepo) FindByUser(_ context.Context, userID string) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	balance, ok := r.s.t.wallets[userID]
	if !ok {
		return nil, domain.NewNotFoundError("wallet", userID)
	}
	return domain.ReconstructWallet(userID, balance), nil
}

func (r *walletRepo) UpdateBalanceConditional(_ context.Context, userID string, expected, next domain.Money) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	balance, ok := r.s.t.wallets[userID]
	if !ok || balance != expected {
		return 0, nil
	}
	remember(r.log, r.s.t.wallets, userID)
	r.s.t.wallets[userID] = next
	return 1, nil
}

type paymentRepo struct {
	s   *Store
	log *undoLog
}

func (r *paymentRepo) Insert(_ context.Context, p *domain.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.payments[p.ID()]; ok {
		return domain.NewValidationError("id", "payment "+p.ID()+" already exists")
	}
	remember(r.log, r.s.t.payments, p.ID())
	cp := *p
	r.s.t.payments[p.ID()] = &cp
	return nil
}

func (r *paymentRepo) FindByRide(_ context.Context, rideID string) ([]*domain.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.Payment
	for _, p := range r.s.t.payments {
		if p.RideID() == rideID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return earlier(out[i].CreatedAt(), out[j].CreatedAt(), out[i].ID(), out[j].ID())
	})
	return out, nil
}

func earlier(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return idA < idB
}
