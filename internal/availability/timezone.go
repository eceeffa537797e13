package availability

import (
	"fmt"
	"time"
)

// LoadZone resolves an IANA zone identifier. Unknown identifiers are a
// configuration error, never a silent fallback to UTC.
func LoadZone(name string) (*time.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty timezone", ErrConfiguration)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrConfiguration, name)
	}
	return loc, nil
}

// Normalize converts a wall-clock time on a calendar date to an instant in
// loc. DST transitions resolve deterministically:
//
//   - A wall clock that occurs twice (the repeated hour when clocks fall
//     back) resolves to the earlier instant, i.e. the offset in effect
//     before the transition.
//   - A wall clock that never occurs (the skipped hour when clocks spring
//     forward) is shifted forward by the width of the gap, landing just past
//     the transition.
func Normalize(d Date, t TimeOfDay, loc *time.Location) time.Time {
	hh, mm := t.Clock()

	// Seconds the target wall clock would have if loc were UTC.
	utcGuess := time.Date(d.Year, d.Month, d.Day, hh, mm, 0, 0, time.UTC).Unix()

	// Probe the zone offset well before, at, and well after the moment in
	// question. Each distinct offset yields one candidate instant; a
	// candidate is valid when it reads back as the target wall clock.
	var candidates []time.Time
	seen := make(map[int]bool)
	for _, probe := range []int64{utcGuess - 26*3600, utcGuess, utcGuess + 26*3600} {
		_, off := time.Unix(probe, 0).In(loc).Zone()
		if seen[off] {
			continue
		}
		seen[off] = true

		cand := time.Unix(utcGuess-int64(off), 0).In(loc)
		cy, cm, cd := cand.Date()
		if cy == d.Year && cm == d.Month && cd == d.Day && cand.Hour() == hh && cand.Minute() == mm {
			candidates = append(candidates, cand)
		}
	}

	switch len(candidates) {
	case 0:
		// Skipped wall clock. time.Date pushes the reading past the gap.
		return time.Date(d.Year, d.Month, d.Day, hh, mm, 0, 0, loc)
	case 1:
		return candidates[0]
	default:
		earliest := candidates[0]
		for _, c := range candidates[1:] {
			if c.Before(earliest) {
				earliest = c
			}
		}
		return earliest
	}
}

// Denormalize splits an instant into the calendar date, wall-clock time and
// weekday it reads as in loc.
func Denormalize(instant time.Time, loc *time.Location) (Date, TimeOfDay, Weekday) {
	local := instant.In(loc)
	d := DateOf(local)
	return d, TimeOfDay(local.Hour()*60 + local.Minute()), WeekdayOf(local.Weekday())
}

// startOfDay returns midnight of d in loc. On days where midnight itself
// falls in a DST gap this is the first valid instant of the day.
func startOfDay(d Date, loc *time.Location) time.Time {
	return Normalize(d, 0, loc)
}
