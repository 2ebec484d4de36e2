package domain

import (
	"fmt"
	"strings"
)

// RideStatus is shared by ride requests and rides. Requests use every value;
// rides start at MATCHED.
type RideStatus string

const (
	StatusRequested  RideStatus = "REQUESTED"
	StatusMatched    RideStatus = "MATCHED"
	StatusAccepted   RideStatus = "ACCEPTED"
	StatusInProgress RideStatus = "IN_PROGRESS"
	StatusCompleted  RideStatus = "COMPLETED"
	StatusCancelled  RideStatus = "CANCELLED"
)

func (s RideStatus) String() string {
	return string(s)
}

func (s RideStatus) IsValid() bool {
	switch s {
	case StatusRequested, StatusMatched, StatusAccepted,
		StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s RideStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseRideStatus accepts the canonical names plus ENROUTE, which older
// rows use for IN_PROGRESS.
func ParseRideStatus(s string) (RideStatus, error) {
	st := RideStatus(strings.ToUpper(strings.TrimSpace(s)))
	if st == "ENROUTE" || st == "EN_ROUTE" {
		return StatusInProgress, nil
	}
	if !st.IsValid() {
		return "", fmt.Errorf("unknown ride status %q", s)
	}
	return st, nil
}

// transitionTable lists, for each target state, the states it may be entered from.
type transitionTable map[RideStatus][]RideStatus

func (t transitionTable) allows(from, to RideStatus) bool {
	for _, s := range t[to] {
		if s == from {
			return true
		}
	}
	return false
}

var requestTransitions = transitionTable{
	StatusMatched:    {StatusRequested},
	StatusAccepted:   {StatusMatched},
	StatusInProgress: {StatusAccepted},
	StatusCompleted:  {StatusInProgress},
	StatusCancelled:  {StatusRequested, StatusMatched, StatusAccepted, StatusInProgress},
}

var rideTransitions = transitionTable{
	StatusAccepted:   {StatusMatched},
	StatusInProgress: {StatusAccepted},
	StatusCompleted:  {StatusInProgress},
	StatusCancelled:  {StatusMatched, StatusAccepted},
}

// CanRequestTransition reports whether a ride request may move from -> to.
func CanRequestTransition(from, to RideStatus) bool {
	return requestTransitions.allows(from, to)
}

// CanRideTransition reports whether a ride may move from -> to.
func CanRideTransition(from, to RideStatus) bool {
	return rideTransitions.allows(from, to)
}

// expectedFor renders the allowed predecessors of to, for error messages.
func (t transitionTable) expectedFor(to RideStatus) string {
	names := make([]string, 0, len(t[to]))
	for _, s := range t[to] {
		names = append(names, string(s))
	}
	return strings.Join(names, "|")
}
