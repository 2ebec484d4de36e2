package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Money is an amount in cents.
type Money int64

func (m Money) String() string {
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%d.%02d", sign, m/100, m%100)
}

// Dollars builds a Money value from whole dollars.
func Dollars(d int64) Money { return Money(d * 100) }

// FareZone groups postcodes that share a flat fare.
type FareZone string

const (
	ZoneNone       FareZone = "NONE"
	ZoneAirport    FareZone = "AIRPORT"
	ZoneMetro      FareZone = "METRO"
	ZoneRegional   FareZone = "REGIONAL"
	ZoneInterstate FareZone = "INTERSTATE"
)

const airportPostcode = "3045"

// FareTable is a static lookup from postcode zone to flat fare.
type FareTable struct {
	fares map[FareZone]Money
}

// NewFareTable returns the default zone fares.
func NewFareTable() *FareTable {
	return NewFareTableWithRates(map[FareZone]Money{
		ZoneAirport:    Dollars(60),
		ZoneMetro:      Dollars(40),
		ZoneRegional:   Dollars(220),
		ZoneInterstate: Dollars(500),
	})
}

// NewFareTableWithRates builds a table with custom fares per zone.
func NewFareTableWithRates(fares map[FareZone]Money) *FareTable {
	cp := make(map[FareZone]Money, len(fares))
	for z, m := range fares {
		cp[z] = m
	}
	return &FareTable{fares: cp}
}

// ZoneOf classifies a postcode. Empty postcodes have no zone.
func ZoneOf(postcode string) FareZone {
	if postcode == "" {
		return ZoneNone
	}
	if postcode == airportPostcode {
		return ZoneAirport
	}
	n, err := strconv.Atoi(postcode)
	if err != nil || postcode[0] != '3' {
		return ZoneInterstate
	}
	switch {
	case n >= 3000 && n <= 3299:
		return ZoneMetro
	case n >= 3300 && n <= 3999:
		return ZoneRegional
	}
	return ZoneInterstate
}

// FareFor prices a trip. Either end at the airport pays the airport fare;
// otherwise the destination's zone decides, falling back to the pickup when
// the destination has no postcode. No postcode at either end is free.
func (t *FareTable) FareFor(pickup, dropoff Location) Money {
	if pickup.Postcode() == airportPostcode || dropoff.Postcode() == airportPostcode {
		return t.fares[ZoneAirport]
	}
	zone := ZoneOf(dropoff.Postcode())
	if zone == ZoneNone {
		zone = ZoneOf(pickup.Postcode())
	}
	if zone == ZoneNone {
		return 0
	}
	return t.fares[zone]
}

// Quote prices a trip from postcodes alone. Each postcode must be empty or
// four digits.
func (t *FareTable) Quote(pickupPostcode, dropoffPostcode string) (Money, error) {
	pickup, err := postcodeOnly("pickup_postcode", pickupPostcode)
	if err != nil {
		return 0, err
	}
	dropoff, err := postcodeOnly("dropoff_postcode", dropoffPostcode)
	if err != nil {
		return 0, err
	}
	return t.FareFor(pickup, dropoff), nil
}

func postcodeOnly(field, postcode string) (Location, error) {
	postcode = strings.TrimSpace(postcode)
	if postcode != "" && !isPostcode(postcode) {
		return Location{}, NewValidationError(field, "must be four digits")
	}
	return Location{postcode: postcode}, nil
}
