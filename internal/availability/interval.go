package availability

import (
	"sort"
	"time"
)

// Interval is a half-open [Start, End) span of concrete instants.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals share any time.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Duration returns the span length.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Subtract removes busy from iv, returning zero, one or two remaining
// pieces in order.
func (iv Interval) Subtract(busy Interval) []Interval {
	if !iv.Overlaps(busy) {
		return []Interval{iv}
	}

	var out []Interval
	if iv.Start.Before(busy.Start) {
		out = append(out, Interval{Start: iv.Start, End: busy.Start})
	}
	if busy.End.Before(iv.End) {
		out = append(out, Interval{Start: busy.End, End: iv.End})
	}
	return out
}

// SubtractAll removes every busy interval from every candidate interval.
// The result is sorted by start time.
func SubtractAll(intervals, busy []Interval) []Interval {
	out := intervals
	for _, b := range busy {
		var next []Interval
		for _, iv := range out {
			next = append(next, iv.Subtract(b)...)
		}
		out = next
	}
	sortIntervals(out)
	return out
}

// mergeIntervals coalesces overlapping or touching intervals into a minimal
// sorted set.
func mergeIntervals(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sortIntervals(sorted)

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

func sortIntervals(intervals []Interval) {
	sort.Slice(intervals, func(i, j int) bool {
		if intervals[i].Start.Equal(intervals[j].Start) {
			return intervals[i].End.Before(intervals[j].End)
		}
		return intervals[i].Start.Before(intervals[j].Start)
	})
}
