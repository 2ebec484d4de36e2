package domain

import (
	"net/mail"
	"strings"
	"time"
)

// Rider requests rides and pays for them.
type Rider struct {
	id        string
	name      string
	email     string
	createdAt time.Time
}

func NewRider(id, name, email string) (*Rider, error) {
	name, email, err := validateParticipant(id, name, email)
	if err != nil {
		return nil, err
	}
	return &Rider{id: id, name: name, email: email, createdAt: time.Now()}, nil
}

func ReconstructRider(id, name, email string, createdAt time.Time) *Rider {
	return &Rider{id: id, name: name, email: email, createdAt: createdAt}
}

func (r *Rider) ID() string           { return r.id }
func (r *Rider) Name() string         { return r.name }
func (r *Rider) Email() string        { return r.email }
func (r *Rider) CreatedAt() time.Time { return r.createdAt }

// Contact is where notifications for this rider go.
func (r *Rider) Contact() Contact { return Contact{UserID: r.id, Email: r.email} }

func (r *Rider) EntityKey() string { return "rider:" + r.id }

// Driver is matched to requests according to their availability schedule.
type Driver struct {
	id        string
	name      string
	email     string
	vehicle   string
	createdAt time.Time
}

func NewDriver(id, name, email, vehicle string) (*Driver, error) {
	name, email, err := validateParticipant(id, name, email)
	if err != nil {
		return nil, err
	}
	return &Driver{
		id:        id,
		name:      name,
		email:     email,
		vehicle:   strings.TrimSpace(vehicle),
		createdAt: time.Now(),
	}, nil
}

func ReconstructDriver(id, name, email, vehicle string, createdAt time.Time) *Driver {
	return &Driver{id: id, name: name, email: email, vehicle: vehicle, createdAt: createdAt}
}

func (d *Driver) ID() string           { return d.id }
func (d *Driver) Name() string         { return d.name }
func (d *Driver) Email() string        { return d.email }
func (d *Driver) Vehicle() string      { return d.vehicle }
func (d *Driver) CreatedAt() time.Time { return d.createdAt }

func (d *Driver) Contact() Contact { return Contact{UserID: d.id, Email: d.email} }

func (d *Driver) EntityKey() string { return "driver:" + d.id }

// Contact addresses a notification. Transports pick the field they route on.
type Contact struct {
	UserID string
	Email  string
}

func validateParticipant(id, name, email string) (string, string, error) {
	if strings.TrimSpace(id) == "" {
		return "", "", NewValidationError("id", "must not be empty")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", NewValidationError("name", "must not be empty")
	}
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return "", "", NewValidationError("email", "is not a valid address")
	}
	return name, email, nil
}
