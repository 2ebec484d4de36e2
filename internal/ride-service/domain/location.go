package domain

import (
	"strings"
)

// Location is an immutable pickup or drop-off point. The postcode drives the
// fare zone; it may be empty.
type Location struct {
	address  string
	postcode string
}

// NewLocation validates and builds a location.
func NewLocation(address, postcode string) (Location, error) {
	address = strings.TrimSpace(address)
	postcode = strings.TrimSpace(postcode)
	if address == "" {
		return Location{}, NewValidationError("address", "must not be empty")
	}
	if postcode != "" && !isPostcode(postcode) {
		return Location{}, NewValidationError("postcode", "must be four digits")
	}
	return Location{address: address, postcode: postcode}, nil
}

func (l Location) Address() string  { return l.address }
func (l Location) Postcode() string { return l.postcode }

func (l Location) String() string {
	if l.postcode == "" {
		return l.address
	}
	return l.address + " " + l.postcode
}

func isPostcode(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
