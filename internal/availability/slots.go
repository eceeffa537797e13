package availability

import (
	"sort"
	"time"
)

// generateSlots slices free intervals into bookable slots of exactly the
// service duration, stepping by granularity within each interval. Group
// slots with no remaining capacity are dropped. Results are expressed in the
// caller's requested location, sorted by start time, with duplicate
// (date, start) pairs removed.
func generateSlots(free []Interval, sc *SchedulingContext, granularityMinutes int, reqLoc *time.Location) []Slot {
	duration := time.Duration(sc.Service.DurationMinutes) * time.Minute
	step := time.Duration(granularityMinutes) * time.Minute

	var slots []Slot
	seen := make(map[int64]bool)

	for _, iv := range free {
		for cursor := iv.Start; !cursor.Add(duration).After(iv.End); cursor = cursor.Add(step) {
			if seen[cursor.Unix()] {
				continue
			}

			window := Interval{Start: cursor, End: cursor.Add(duration)}
			capacity := remainingCapacity(sc, window)
			if capacity <= 0 {
				continue
			}

			seen[cursor.Unix()] = true
			start := cursor.In(reqLoc)
			slots = append(slots, Slot{
				Date:              DateOf(start),
				Start:             start,
				End:               window.End.In(reqLoc),
				RemainingCapacity: capacity,
			})
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	return slots
}
