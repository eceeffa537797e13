package availability

import (
	"fmt"
	"time"
)

// applyExceptions subtracts vacation/holiday/personal blocks from the
// candidate intervals. Full-day exceptions remove whole dates; partial-day
// exceptions subtract their sub-range on each covered date, which may split
// an interval in two. Annually recurring exceptions are expanded to every
// occurrence touching the queried years before filtering.
func applyExceptions(intervals []Interval, sc *SchedulingContext, r DateRange, loc *time.Location) ([]Interval, error) {
	var blocked []Interval

	for _, ex := range sc.Exceptions {
		if !ex.AppliesTo(sc.Service.ID) {
			continue
		}

		for _, occ := range exceptionOccurrences(ex, r) {
			if occ.End.Before(r.Start) || occ.Start.After(r.End) {
				continue
			}

			if ex.Start == nil || ex.End == nil {
				// Whole days: midnight of the first day to midnight after
				// the last.
				blocked = append(blocked, Interval{
					Start: startOfDay(occ.Start, loc),
					End:   startOfDay(occ.End.AddDays(1), loc),
				})
				continue
			}

			if *ex.End <= *ex.Start {
				return nil, fmt.Errorf("%w: exception %s has end %s <= start %s",
					ErrDataIntegrity, ex.ID, *ex.End, *ex.Start)
			}
			for d := occ.Start; !d.After(occ.End); d = d.AddDays(1) {
				blocked = append(blocked, Interval{
					Start: Normalize(d, *ex.Start, loc),
					End:   Normalize(d, *ex.End, loc),
				})
			}
		}
	}

	if len(blocked) == 0 {
		return intervals, nil
	}
	return SubtractAll(intervals, mergeIntervals(blocked)), nil
}

// exceptionOccurrences expands an exception to the date spans falling in or
// around the queried range. Non-recurring exceptions occur once; recurring
// ones repeat annually on the same month and day. Candidate years bracket
// the range by one year so spans crossing New Year are not missed.
func exceptionOccurrences(ex AvailabilityException, r DateRange) []DateRange {
	if !ex.IsRecurring {
		return []DateRange{{Start: ex.StartDate, End: ex.EndDate}}
	}

	spanDays := DateRange{Start: ex.StartDate, End: ex.EndDate}.Days() - 1
	var out []DateRange
	for year := r.Start.Year - 1; year <= r.End.Year+1; year++ {
		start := DateOf(time.Date(year, ex.StartDate.Month, ex.StartDate.Day, 0, 0, 0, 0, time.UTC))
		out = append(out, DateRange{Start: start, End: start.AddDays(spanDays)})
	}
	return out
}
