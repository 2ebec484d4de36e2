package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time as seconds since midnight.
type TimeOfDay int

const secondsPerDay = 24 * 60 * 60

// NewTimeOfDay builds a time of day from its parts.
func NewTimeOfDay(hour, minute, second int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return 0, NewValidationError("time", fmt.Sprintf("%02d:%02d:%02d is not a valid time of day", hour, minute, second))
	}
	return TimeOfDay(hour*3600 + minute*60 + second), nil
}

// ParseTimeOfDay accepts HH:MM or HH:MM:SS and nothing else.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	layout := "15:04"
	if strings.Count(s, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, NewValidationError("time", fmt.Sprintf("%q is not HH:MM or HH:MM:SS", s))
	}
	return NewTimeOfDay(t.Hour(), t.Minute(), t.Second())
}

// TimeOfDayOf extracts the wall-clock time of t in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

func (t TimeOfDay) String() string {
	h, m, s := int(t)/3600, int(t)%3600/60, int(t)%60
	if s == 0 {
		return fmt.Sprintf("%02d:%02d", h, m)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// ParseWeekday accepts English day names in any case, full or three-letter.
func ParseWeekday(s string) (time.Weekday, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if in == name || in == name[:3] {
			return d, nil
		}
	}
	return 0, NewValidationError("day", fmt.Sprintf("%q is not a day of the week", s))
}

// AvailabilityWindow is a recurring weekly interval. Both ends are inclusive.
type AvailabilityWindow struct {
	day   time.Weekday
	start TimeOfDay
	end   TimeOfDay
}

// NewAvailabilityWindow rejects windows whose start is not before their end.
func NewAvailabilityWindow(day time.Weekday, start, end TimeOfDay) (AvailabilityWindow, error) {
	if day < time.Sunday || day > time.Saturday {
		return AvailabilityWindow{}, NewValidationError("day", fmt.Sprintf("%d is not a day of the week", day))
	}
	if start < 0 || end >= secondsPerDay || start >= end {
		return AvailabilityWindow{}, NewValidationError("window", fmt.Sprintf("start %s must be before end %s", start, end))
	}
	return AvailabilityWindow{day: day, start: start, end: end}, nil
}

func (w AvailabilityWindow) Day() time.Weekday { return w.day }
func (w AvailabilityWindow) Start() TimeOfDay  { return w.start }
func (w AvailabilityWindow) End() TimeOfDay    { return w.end }

// Covers reports whether (day, t) falls inside the window.
func (w AvailabilityWindow) Covers(day time.Weekday, t TimeOfDay) bool {
	return w.day == day && t >= w.start && t <= w.end
}

func (w AvailabilityWindow) String() string {
	return fmt.Sprintf("%s %s-%s", w.day, w.start, w.end)
}

// AvailabilitySchedule is a driver's set of weekly windows. It is a value:
// callers replace a schedule, they never edit one in place.
type AvailabilitySchedule struct {
	driverID string
	windows  []AvailabilityWindow
}

// NewAvailabilitySchedule copies and orders the windows by day then start.
func NewAvailabilitySchedule(driverID string, windows []AvailabilityWindow) *AvailabilitySchedule {
	cp := make([]AvailabilityWindow, len(windows))
	copy(cp, windows)
	sort.SliceStable(cp, func(i, j int) bool {
		if cp[i].day != cp[j].day {
			return cp[i].day < cp[j].day
		}
		return cp[i].start < cp[j].start
	})
	return &AvailabilitySchedule{driverID: driverID, windows: cp}
}

func (s *AvailabilitySchedule) DriverID() string { return s.driverID }

// EntityKey identifies the schedule inside a unit of work.
func (s *AvailabilitySchedule) EntityKey() string { return "availability:" + s.driverID }

// Windows returns a copy of the windows.
func (s *AvailabilitySchedule) Windows() []AvailabilityWindow {
	cp := make([]AvailabilityWindow, len(s.windows))
	copy(cp, s.windows)
	return cp
}

func (s *AvailabilitySchedule) IsEmpty() bool { return s == nil || len(s.windows) == 0 }

// IsAvailable reports membership of (day, t) in any window. A schedule with
// no windows is never available.
func (s *AvailabilitySchedule) IsAvailable(day time.Weekday, t TimeOfDay) bool {
	if s == nil {
		return false
	}
	for _, w := range s.windows {
		if w.Covers(day, t) {
			return true
		}
	}
	return false
}

// IsAvailableAt evaluates IsAvailable for an instant seen in loc.
func (s *AvailabilitySchedule) IsAvailableAt(at time.Time, loc *time.Location) bool {
	local := at.In(loc)
	return s.IsAvailable(local.Weekday(), TimeOfDayOf(local))
}
