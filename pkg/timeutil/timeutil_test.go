package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfWeek_Monday(t *testing.T) {
	loc := time.UTC

	// Wednesday 2025-03-12
	wed := time.Date(2025, 3, 12, 15, 30, 0, 0, loc)
	start := StartOfWeek(wed, loc)
	assert.Equal(t, time.Monday, start.Weekday())
	assert.Equal(t, 10, start.Day())
	assert.Equal(t, 0, start.Hour())

	// Sunday belongs to the week that started the previous Monday.
	sun := time.Date(2025, 3, 16, 23, 59, 0, 0, loc)
	assert.Equal(t, 10, StartOfWeek(sun, loc).Day())

	// Monday is its own week start.
	mon := time.Date(2025, 3, 10, 0, 0, 1, 0, loc)
	assert.Equal(t, 10, StartOfWeek(mon, loc).Day())
}

func TestCurrentWeek_ContainsDate(t *testing.T) {
	loc := time.UTC
	week := CurrentWeek(time.Date(2025, 3, 12, 12, 0, 0, 0, loc), loc)

	// Sunday 23:00 is still inside the window (date comparison, not timestamp).
	assert.True(t, week.ContainsDate(time.Date(2025, 3, 16, 23, 0, 0, 0, loc)))
	assert.True(t, week.ContainsDate(time.Date(2025, 3, 10, 0, 0, 0, 0, loc)))
	assert.False(t, week.ContainsDate(time.Date(2025, 3, 17, 0, 0, 0, 0, loc)))
	assert.False(t, week.ContainsDate(time.Date(2025, 3, 9, 23, 59, 0, 0, loc)))
}

func TestSameDay_AcrossLocations(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	assert.NoError(t, err)

	// 2025-03-12 03:00 UTC is still 2025-03-11 in New York.
	utcMorning := time.Date(2025, 3, 12, 3, 0, 0, 0, time.UTC)
	nyEvening := time.Date(2025, 3, 11, 22, 0, 0, 0, ny)

	assert.False(t, SameDay(utcMorning, nyEvening, time.UTC))
	assert.True(t, SameDay(utcMorning, nyEvening, ny))
}

func TestDaysBetween(t *testing.T) {
	loc := time.UTC
	a := time.Date(2025, 3, 10, 23, 0, 0, 0, loc)
	b := time.Date(2025, 3, 12, 1, 0, 0, 0, loc)

	assert.Equal(t, 2, DaysBetween(a, b, loc))
	assert.Equal(t, -2, DaysBetween(b, a, loc))
	assert.Equal(t, 0, DaysBetween(a, a, loc))
}

func TestIsYesterday(t *testing.T) {
	loc := time.UTC
	today := time.Date(2025, 3, 12, 9, 0, 0, 0, loc)

	assert.True(t, IsYesterday(time.Date(2025, 3, 11, 23, 59, 0, 0, loc), today, loc))
	assert.False(t, IsYesterday(time.Date(2025, 3, 10, 12, 0, 0, 0, loc), today, loc))
	assert.False(t, IsYesterday(today, today, loc))
}

func TestParseDate_RoundTrip(t *testing.T) {
	loc := time.UTC
	d, err := ParseDate("2025-03-12", loc)
	assert.NoError(t, err)
	assert.Equal(t, "2025-03-12", FormatDate(d, loc))
}
