package availability

import "time"

// applyPolicy enforces minimum notice and the maximum booking horizon.
//
//   - Anything starting before now + AdvanceBookingHours is cut away; an
//     interval straddling the notice boundary keeps its tail.
//   - An interval starting after now + AdvanceBookingDays is dropped
//     entirely. One that merely extends past the horizon is kept, since only
//     slot start times are constrained.
//
// Buffer time is not applied here; the conflict resolver pads existing
// bookings with it instead.
func applyPolicy(intervals []Interval, policy SchedulingPolicy, now time.Time) []Interval {
	earliest := now.Add(time.Duration(policy.AdvanceBookingHours) * time.Hour)
	horizon := now.Add(time.Duration(policy.AdvanceBookingDays) * 24 * time.Hour)

	var out []Interval
	for _, iv := range intervals {
		if iv.Start.After(horizon) {
			continue
		}
		if !iv.Start.Before(earliest) {
			out = append(out, iv)
			continue
		}
		if iv.End.After(earliest) {
			out = append(out, Interval{Start: earliest, End: iv.End})
		}
	}
	return out
}
