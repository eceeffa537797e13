package availability

import "time"

// subtractBookings removes time consumed by existing occupying bookings.
// Each booking is padded with the practitioner's buffer time after its end,
// so the next slot cannot start until the buffer has passed; a slot ending
// exactly at a booking's start remains valid.
//
// For an exclusive service every occupying booking of the practitioner is
// subtracted. For a group service, bookings of the same service share the
// session and are handled by capacity accounting instead; only bookings of
// other services consume the practitioner's time here.
func subtractBookings(intervals []Interval, sc *SchedulingContext) []Interval {
	buffer := time.Duration(sc.Policy.BufferTimeMinutes) * time.Minute
	exclusive := sc.Service.MaxParticipants <= 1

	var busy []Interval
	for _, b := range sc.Bookings {
		if !b.Status.Occupies() {
			continue
		}
		if !exclusive && b.ServiceID == sc.Service.ID {
			continue
		}
		busy = append(busy, Interval{Start: b.StartTime, End: b.EndTime.Add(buffer)})
	}

	if len(busy) == 0 {
		return intervals
	}
	return SubtractAll(intervals, mergeIntervals(busy))
}

// remainingCapacity computes how many participants can still join a group
// slot: the service maximum minus all participants of occupying same-service
// bookings overlapping the window. Exclusive services always report 1, since
// conflicting time was already subtracted.
func remainingCapacity(sc *SchedulingContext, window Interval) int {
	if sc.Service.MaxParticipants <= 1 {
		return 1
	}

	taken := 0
	for _, b := range sc.Bookings {
		if !b.Status.Occupies() || b.ServiceID != sc.Service.ID {
			continue
		}
		if window.Overlaps(Interval{Start: b.StartTime, End: b.EndTime}) {
			n := b.Participants
			if n <= 0 {
				n = 1
			}
			taken += n
		}
	}
	return sc.Service.MaxParticipants - taken
}
