package availability

import (
	"fmt"
	"sort"
)

// SourceKind identifies which schedule source produced an interval.
type SourceKind string

const (
	SourceDateOverride    SourceKind = "date_override"
	SourceServiceSchedule SourceKind = "service_schedule"
	SourceRecurring       SourceKind = "recurring_schedule"
)

// ResolvedInterval is a raw wall-clock availability window on one date,
// before exception filtering and conflict subtraction.
type ResolvedInterval struct {
	Date   Date
	Start  TimeOfDay
	End    TimeOfDay
	Source SourceKind
}

// resolveRawIntervals walks every date in the range and picks that date's
// intervals from exactly one source, in strict precedence order:
// DateOverride > ServiceSchedule > RecurringSchedule. A date with no source
// at all is simply closed.
func resolveRawIntervals(sc *SchedulingContext, r DateRange) ([]ResolvedInterval, error) {
	base, err := baseSchedule(sc)
	if err != nil {
		return nil, err
	}

	recurringByDay := make(map[Weekday][]TimeSlot)
	if base != nil {
		if err := validateScheduleSlots(base); err != nil {
			return nil, err
		}
		for _, ts := range base.TimeSlots {
			if ts.IsActive {
				recurringByDay[ts.Weekday] = append(recurringByDay[ts.Weekday], ts)
			}
		}
	}

	// An inactive service schedule entry still claims its weekday; it just
	// contributes no interval. This lets a service close a weekday the
	// recurring schedule has open.
	serviceByDay := make(map[Weekday][]ServiceSchedule)
	for _, ss := range sc.ServiceSchedules {
		serviceByDay[ss.Weekday] = append(serviceByDay[ss.Weekday], ss)
	}

	overridesByDate := make(map[Date][]DateOverride)
	for _, ov := range sc.DateOverrides {
		if !overrideAppliesToService(ov, sc) {
			continue
		}
		overridesByDate[ov.Date] = append(overridesByDate[ov.Date], ov)
	}

	var out []ResolvedInterval
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		day := d.Weekday()

		if overrides, ok := overridesByDate[d]; ok {
			for _, ov := range overrides {
				if !ov.IsActive {
					continue
				}
				if ov.End <= ov.Start {
					return nil, fmt.Errorf("%w: date override %s has end %s <= start %s",
						ErrDataIntegrity, ov.ID, ov.End, ov.Start)
				}
				out = append(out, ResolvedInterval{Date: d, Start: ov.Start, End: ov.End, Source: SourceDateOverride})
			}
			continue
		}

		if entries, ok := serviceByDay[day]; ok {
			for _, ss := range entries {
				if !ss.IsActive {
					continue
				}
				if ss.End <= ss.Start {
					return nil, fmt.Errorf("%w: service schedule %s has end %s <= start %s",
						ErrDataIntegrity, ss.ID, ss.End, ss.Start)
				}
				out = append(out, ResolvedInterval{Date: d, Start: ss.Start, End: ss.End, Source: SourceServiceSchedule})
			}
			continue
		}

		for _, ts := range recurringByDay[day] {
			out = append(out, ResolvedInterval{Date: d, Start: ts.Start, End: ts.End, Source: SourceRecurring})
		}
	}

	return out, nil
}

// baseSchedule picks the recurring schedule backing this query: the one the
// service is pinned to, otherwise the practitioner's default. No usable
// schedule means closed days, not an error.
func baseSchedule(sc *SchedulingContext) (*RecurringSchedule, error) {
	if sc.Service.ScheduleID != nil {
		for i := range sc.Schedules {
			s := &sc.Schedules[i]
			if s.ID == *sc.Service.ScheduleID {
				if !s.IsActive {
					return nil, nil
				}
				return s, nil
			}
		}
		return nil, fmt.Errorf("%w: service %s references unknown schedule %s",
			ErrConfiguration, sc.Service.ID, *sc.Service.ScheduleID)
	}

	for i := range sc.Schedules {
		s := &sc.Schedules[i]
		if s.IsDefault && s.IsActive {
			return s, nil
		}
	}
	return nil, nil
}

// validateScheduleSlots rejects malformed persisted slots (end <= start) and
// overlapping windows on the same weekday of one schedule.
func validateScheduleSlots(s *RecurringSchedule) error {
	byDay := make(map[Weekday][]TimeSlot)
	for _, ts := range s.TimeSlots {
		if !ts.IsActive {
			continue
		}
		if ts.End <= ts.Start {
			return fmt.Errorf("%w: time slot %s in schedule %q has end %s <= start %s",
				ErrDataIntegrity, ts.ID, s.Name, ts.End, ts.Start)
		}
		byDay[ts.Weekday] = append(byDay[ts.Weekday], ts)
	}

	for day, slots := range byDay {
		sort.Slice(slots, func(i, j int) bool { return slots[i].Start < slots[j].Start })
		for i := 1; i < len(slots); i++ {
			if slots[i].Start < slots[i-1].End {
				return fmt.Errorf("%w: schedule %q has overlapping slots %s-%s and %s-%s on weekday %d",
					ErrConfiguration, s.Name,
					slots[i-1].Start, slots[i-1].End, slots[i].Start, slots[i].End, day)
			}
		}
	}
	return nil
}

// overrideAppliesToService filters out overrides linked to another service's
// schedule entry. An unlinked override applies to every service.
func overrideAppliesToService(ov DateOverride, sc *SchedulingContext) bool {
	if ov.ServiceScheduleID == nil {
		return true
	}
	for _, ss := range sc.ServiceSchedules {
		if ss.ID == *ov.ServiceScheduleID {
			return true
		}
	}
	return false
}
