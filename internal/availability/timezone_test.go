package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadZone(t *testing.T) {
	loc, err := LoadZone("Europe/Berlin")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())

	_, err = LoadZone("Mars/Olympus_Mons")
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = LoadZone("")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestNormalizeRoundTrip(t *testing.T) {
	loc, err := LoadZone("America/New_York")
	require.NoError(t, err)

	d := Date{Year: 2026, Month: time.September, Day: 7}
	tod, err := ParseTimeOfDay("14:45")
	require.NoError(t, err)

	instant := Normalize(d, tod, loc)
	gotDate, gotTod, gotWeekday := Denormalize(instant, loc)

	assert.Equal(t, d, gotDate)
	assert.Equal(t, tod, gotTod)
	assert.Equal(t, Monday, gotWeekday)
}

func TestNormalizeAmbiguousFallBack(t *testing.T) {
	// US clocks fall back on 2026-11-01: 01:30 occurs twice. The earlier
	// instant (EDT, UTC-4) must win.
	loc, err := LoadZone("America/New_York")
	require.NoError(t, err)

	d := Date{Year: 2026, Month: time.November, Day: 1}
	tod, _ := ParseTimeOfDay("01:30")

	instant := Normalize(d, tod, loc)
	assert.Equal(t, time.Date(2026, time.November, 1, 5, 30, 0, 0, time.UTC), instant.UTC())

	_, off := instant.Zone()
	assert.Equal(t, -4*3600, off)
}

func TestNormalizeSkippedSpringForward(t *testing.T) {
	// US clocks spring forward on 2026-03-08: 02:30 never happens. The
	// reading shifts forward by the width of the gap, to 03:30 EDT.
	loc, err := LoadZone("America/New_York")
	require.NoError(t, err)

	d := Date{Year: 2026, Month: time.March, Day: 8}
	tod, _ := ParseTimeOfDay("02:30")

	instant := Normalize(d, tod, loc)
	assert.Equal(t, 3, instant.Hour())
	assert.Equal(t, 30, instant.Minute())

	_, off := instant.Zone()
	assert.Equal(t, -4*3600, off)
}

func TestWeekdayConvention(t *testing.T) {
	// 2026-09-07 is a Monday.
	assert.Equal(t, Monday, Date{Year: 2026, Month: time.September, Day: 7}.Weekday())
	assert.Equal(t, Sunday, Date{Year: 2026, Month: time.September, Day: 13}.Weekday())
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:05")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(9*60+5), tod)
	assert.Equal(t, "09:05", tod.String())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
}

func TestDateRangeDays(t *testing.T) {
	r := DateRange{
		Start: Date{Year: 2026, Month: time.December, Day: 30},
		End:   Date{Year: 2027, Month: time.January, Day: 2},
	}
	assert.Equal(t, 4, r.Days())
}
