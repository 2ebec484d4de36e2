package memory

import (
	"context"
	"sort"

	"rideshare/internal/ride-service/domain"
)

func cloneRequest(r *domain.RideRequest) *domain.RideRequest {
	cp := *r
	return &cp
}

func cloneRide(r *domain.Ride) *domain.Ride {
	cp := *r
	return &cp
}

type requestRepo struct {
	s   *Store
	log *undoLog
}

func (r *requestRepo) Insert(_ context.Context, req *domain.RideRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.requests[req.ID()]; ok {
		return domain.NewValidationError("id", "ride request "+req.ID()+" already exists")
	}
	remember(r.log, r.s.t.requests, req.ID())
	r.s.t.requests[req.ID()] = cloneRequest(req)
	return nil
}

func (r *requestRepo) Update(_ context.Context, req *domain.RideRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.requests[req.ID()]; !ok {
		return domain.NewNotFoundError("ride request", req.ID())
	}
	remember(r.log, r.s.t.requests, req.ID())
	r.s.t.requests[req.ID()] = cloneRequest(req)
	return nil
}

func (r *requestRepo) FindByID(_ context.Context, id string) (*domain.RideRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	req, ok := r.s.t.requests[id]
	if !ok {
		return nil, domain.NewNotFoundError("ride request", id)
	}
	return cloneRequest(req), nil
}

func (r *requestRepo) FindAll(_ context.Context) ([]*domain.RideRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.RideRequest, 0, len(r.s.t.requests))
	for _, req := range r.s.t.requests {
		out = append(out, cloneRequest(req))
	}
	sort.Slice(out, func(i, j int) bool {
		return earlier(out[i].RequestedAt(), out[j].RequestedAt(), out[i].ID(), out[j].ID())
	})
	return out, nil
}

func (r *requestRepo) FindByRider(ctx context.Context, riderID string) ([]*domain.RideRequest, error) {
	all, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []*domain.RideRequest
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].RiderID() == riderID {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func (r *requestRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.requests[id]; !ok {
		return domain.NewNotFoundError("ride request", id)
	}
	remember(r.log, r.s.t.requests, id)
	delete(r.s.t.requests, id)
	return nil
}

// LockForUpdate only checks the row exists; transactions are already
// exclusive.
func (r *requestRepo) LockForUpdate(ctx context.Context, id string) error {
	_, err := r.FindByID(ctx, id)
	return err
}

type rideRepo struct {
	s   *Store
	log *undoLog
}

func (r *rideRepo) Insert(_ context.Context, ride *domain.Ride) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.rides[ride.ID()]; ok {
		return domain.NewValidationError("id", "ride "+ride.ID()+" already exists")
	}
	remember(r.log, r.s.t.rides, ride.ID())
	r.s.t.rides[ride.ID()] = cloneRide(ride)
	return nil
}

// Update overwrites the row and bumps the stored version without checking it.
func (r *rideRepo) Update(_ context.Context, ride *domain.Ride) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.t.rides[ride.ID()]
	if !ok {
		return domain.NewNotFoundError("ride", ride.ID())
	}
	next := cloneRide(ride)
	next.SetVersion(stored.Version() + 1)

	remember(r.log, r.s.t.rides, ride.ID())
	r.s.t.rides[ride.ID()] = next
	return nil
}

func (r *rideRepo) UpdateWithVersion(_ context.Context, ride *domain.Ride) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.t.rides[ride.ID()]
	if !ok || stored.Version() != ride.Version() {
		return 0, nil
	}
	next := cloneRide(ride)
	next.SetVersion(ride.Version() + 1)

	remember(r.log, r.s.t.rides, ride.ID())
	r.s.t.rides[ride.ID()] = next
	return 1, nil
}

func (r *rideRepo) FindByID(_ context.Context, id string) (*domain.Ride, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ride, ok := r.s.t.rides[id]
	if !ok {
		return nil, domain.NewNotFoundError("ride", id)
	}
	return cloneRide(ride), nil
}

func (r *rideRepo) FindAll(_ context.Context) ([]*domain.Ride, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Ride, 0, len(r.s.t.rides))
	for _, ride := range r.s.t.rides {
		out = append(out, cloneRide(ride))
	}
	sort.Slice(out, func(i, j int) bool {
		return earlier(out[i].CreatedAt(), out[j].CreatedAt(), out[i].ID(), out[j].ID())
	})
	return out, nil
}

func (r *rideRepo) FindByRequest(ctx context.Context, requestID string) (*domain.Ride, error) {
	all, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, ride := range all {
		if ride.RequestID() == requestID {
			return ride, nil
		}
	}
	return nil, domain.NewNotFoundError("ride for request", requestID)
}

func (r *rideRepo) FindByDriver(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	all, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []*domain.Ride
	for _, ride := range all {
		if ride.DriverID() == driverID {
			out = append(out, ride)
		}
	}
	return out, nil
}

func (r *rideRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.t.rides[id]; !ok {
		return domain.NewNotFoundError("ride", id)
	}
	remember(r.log, r.s.t.rides, id)
	delete(r.s.t.rides, id)
	return nil
}

func (r *rideRepo) LockForUpdate(ctx context.Context, id string) (int64, error) {
	ride, err := r.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return ride.Version(), nil
}
