package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tod(t *testing.T, s string) TimeOfDay {
	t.Helper()
	v, err := ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

func TestWindowRejectsNonMonotonicBounds(t *testing.T) {
	_, err := NewAvailabilityWindow(time.Monday, tod(t, "12:00"), tod(t, "08:00"))
	require.ErrorIs(t, err, ErrValidation)

	_, err = NewAvailabilityWindow(time.Monday, tod(t, "08:00"), tod(t, "08:00"))
	require.ErrorIs(t, err, ErrValidation)

	_, err = NewAvailabilityWindow(time.Weekday(9), tod(t, "08:00"), tod(t, "09:00"))
	require.ErrorIs(t, err, ErrValidation)
}

func TestWindowCoversIsInclusive(t *testing.T) {
	w, err := NewAvailabilityWindow(time.Monday, tod(t, "08:00"), tod(t, "12:00"))
	require.NoError(t, err)

	assert.True(t, w.Covers(time.Monday, tod(t, "08:00")))
	assert.True(t, w.Covers(time.Monday, tod(t, "12:00")))
	assert.True(t, w.Covers(time.Monday, tod(t, "09:30")))
	assert.False(t, w.Covers(time.Monday, tod(t, "12:00:01")))
	assert.False(t, w.Covers(time.Monday, tod(t, "07:59:59")))
	assert.False(t, w.Covers(time.Tuesday, tod(t, "09:00")))
}

func TestScheduleMembership(t *testing.T) {
	mon, _ := NewAvailabilityWindow(time.Monday, tod(t, "08:00"), tod(t, "12:00"))
	fri, _ := NewAvailabilityWindow(time.Friday, tod(t, "18:00"), tod(t, "23:00"))
	s := NewAvailabilitySchedule("d1", []AvailabilityWindow{fri, mon})

	assert.True(t, s.IsAvailable(time.Monday, tod(t, "09:00")))
	assert.True(t, s.IsAvailable(time.Friday, tod(t, "22:00")))
	assert.False(t, s.IsAvailable(time.Friday, tod(t, "09:00")))

	windows := s.Windows()
	require.Len(t, windows, 2)
	assert.Equal(t, time.Monday, windows[0].Day(), "windows are ordered by day")
}

func TestEmptyScheduleIsNeverAvailable(t *testing.T) {
	s := NewAvailabilitySchedule("d1", nil)
	assert.True(t, s.IsEmpty())
	assert.False(t, s.IsAvailable(time.Monday, tod(t, "09:00")))

	var missing *AvailabilitySchedule
	assert.False(t, missing.IsAvailable(time.Monday, tod(t, "09:00")))
}

func TestIsAvailableAtUsesLocation(t *testing.T) {
	mon, _ := NewAvailabilityWindow(time.Monday, tod(t, "08:00"), tod(t, "12:00"))
	s := NewAvailabilitySchedule("d1", []AvailabilityWindow{mon})

	// Sunday 22:00 UTC is Monday 09:00 in Melbourne (UTC+11 in March)
	at := time.Date(2024, 3, 3, 22, 0, 0, 0, time.UTC)
	assert.False(t, s.IsAvailableAt(at, time.UTC))

	melbourne := time.FixedZone("AEDT", 11*3600)
	assert.True(t, s.IsAvailableAt(at, melbourne))
}

func TestParseTimeOfDay(t *testing.T) {
	v, err := ParseTimeOfDay("08:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(8*3600+30*60), v)
	assert.Equal(t, "08:30", v.String())

	v, err = ParseTimeOfDay("23:59:59")
	require.NoError(t, err)
	assert.Equal(t, "23:59:59", v.String())

	for _, bad := range []string{"24:00", "8", "aa:bb", "12:60", "09:00xyz", "09:00:00:00", "09:00 ", "-1:00"} {
		_, err := ParseTimeOfDay(bad)
		assert.ErrorIs(t, err, ErrValidation, bad)
	}
}

func TestParseWeekday(t *testing.T) {
	d, err := ParseWeekday("MONDAY")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d)

	d, err = ParseWeekday("sat")
	require.NoError(t, err)
	assert.Equal(t, time.Saturday, d)

	_, err = ParseWeekday("someday")
	assert.ErrorIs(t, err, ErrValidation)
}
