package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxRangeDays is the hard ceiling on one query's date window.
const MaxRangeDays = 365

// Query describes one availability computation.
type Query struct {
	PractitionerID uuid.UUID
	ServiceID      uuid.UUID
	Range          DateRange
	// Timezone the slots should be expressed in. Empty means the
	// practitioner's own zone.
	Timezone string
	// GranularityMinutes is the step between candidate slot starts. Zero
	// means the service duration, producing back-to-back slots.
	GranularityMinutes int
}

// Engine computes bookable slots. It is stateless and safe for concurrent
// use; every call recomputes from a fresh snapshot of the inputs.
type Engine struct {
	repo Repository
	log  zerolog.Logger
	now  func() time.Time
}

func NewEngine(repo Repository, log zerolog.Logger) *Engine {
	return &Engine{
		repo: repo,
		log:  log.With().Str("component", "availability").Logger(),
		now:  time.Now,
	}
}

// WithClock overrides the engine's time source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// GetAvailability runs the full pipeline: resolve schedule sources, convert
// to instants in the practitioner zone, filter exceptions, apply lead-time
// policy, subtract booked time, and slice what remains into slots expressed
// in the requested timezone.
func (e *Engine) GetAvailability(ctx context.Context, q Query) (*Availability, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	sc, err := e.loadContext(ctx, q)
	if err != nil {
		return nil, err
	}

	practLoc, err := LoadZone(sc.Policy.Timezone)
	if err != nil {
		return nil, err
	}

	reqTZ := q.Timezone
	if reqTZ == "" {
		reqTZ = sc.Policy.Timezone
	}
	reqLoc, err := LoadZone(reqTZ)
	if err != nil {
		return nil, err
	}

	now := e.now()

	// Dates past the booking horizon can never yield slots; cap the walk
	// before resolving anything.
	effective := q.Range
	horizonDate := DateOf(now.Add(time.Duration(sc.Policy.AdvanceBookingDays) * 24 * time.Hour).In(practLoc))
	if effective.End.After(horizonDate) {
		effective.End = horizonDate
	}
	if effective.End.Before(effective.Start) {
		return &Availability{Timezone: reqTZ, Range: q.Range}, nil
	}

	raw, err := resolveRawIntervals(sc, effective)
	if err != nil {
		e.logIntegrity(err, q)
		return nil, err
	}

	intervals := make([]Interval, 0, len(raw))
	for _, ri := range raw {
		iv := Interval{
			Start: Normalize(ri.Date, ri.Start, practLoc),
			End:   Normalize(ri.Date, ri.End, practLoc),
		}
		// A DST gap can collapse a window that is well-formed on paper.
		if iv.End.After(iv.Start) {
			intervals = append(intervals, iv)
		}
	}
	intervals = mergeIntervals(intervals)

	intervals, err = applyExceptions(intervals, sc, effective, practLoc)
	if err != nil {
		e.logIntegrity(err, q)
		return nil, err
	}

	intervals = applyPolicy(intervals, sc.Policy, now)
	free := subtractBookings(intervals, sc)

	granularity := q.GranularityMinutes
	if granularity <= 0 {
		granularity = sc.Service.DurationMinutes
	}
	slots := generateSlots(free, sc, granularity, reqLoc)

	e.log.Debug().
		Str("practitioner_id", q.PractitionerID.String()).
		Str("service_id", q.ServiceID.String()).
		Str("range", fmt.Sprintf("%s..%s", q.Range.Start, q.Range.End)).
		Int("slots", len(slots)).
		Msg("availability computed")

	return &Availability{Slots: slots, Timezone: reqTZ, Range: q.Range}, nil
}

// NextAvailableSlot returns the earliest bookable slot on or after from,
// searching up to the booking horizon. A nil slot means the practitioner has
// no availability at all in that window.
func (e *Engine) NextAvailableSlot(ctx context.Context, practitionerID, serviceID uuid.UUID, from Date, timezone string) (*Slot, error) {
	avail, err := e.GetAvailability(ctx, Query{
		PractitionerID: practitionerID,
		ServiceID:      serviceID,
		Range:          DateRange{Start: from, End: from.AddDays(MaxRangeDays - 1)},
		Timezone:       timezone,
	})
	if err != nil {
		return nil, err
	}
	if len(avail.Slots) == 0 {
		return nil, nil
	}
	return &avail.Slots[0], nil
}

func validateQuery(q Query) error {
	if q.Range.End.Before(q.Range.Start) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, q.Range.Start, q.Range.End)
	}
	if q.Range.Days() > MaxRangeDays {
		return fmt.Errorf("%w: %d days exceeds the maximum of %d", ErrInvalidRange, q.Range.Days(), MaxRangeDays)
	}
	if q.GranularityMinutes < 0 {
		return fmt.Errorf("%w: negative granularity", ErrInvalidRange)
	}
	return nil
}

// loadContext assembles the immutable read model for one query.
func (e *Engine) loadContext(ctx context.Context, q Query) (*SchedulingContext, error) {
	pract, err := e.repo.GetPractitioner(ctx, q.PractitionerID)
	if err != nil {
		return nil, err
	}

	svc, err := e.repo.GetService(ctx, q.PractitionerID, q.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.IsActive {
		return nil, fmt.Errorf("%w: service %s is inactive", ErrServiceNotFound, svc.ID)
	}
	if svc.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: service %s has non-positive duration", ErrDataIntegrity, svc.ID)
	}

	policy, err := e.repo.GetPolicy(ctx, q.PractitionerID)
	if err != nil {
		return nil, err
	}
	if policy.Timezone == "" {
		policy.Timezone = pract.Timezone
	}

	schedules, err := e.repo.ListRecurringSchedules(ctx, q.PractitionerID)
	if err != nil {
		return nil, err
	}
	serviceSchedules, err := e.repo.ListServiceSchedules(ctx, q.PractitionerID, q.ServiceID)
	if err != nil {
		return nil, err
	}
	overrides, err := e.repo.ListDateOverrides(ctx, q.PractitionerID, q.Range)
	if err != nil {
		return nil, err
	}
	exceptions, err := e.repo.ListExceptions(ctx, q.PractitionerID)
	if err != nil {
		return nil, err
	}

	practLoc, err := LoadZone(policy.Timezone)
	if err != nil {
		return nil, err
	}
	// Fetch a day of margin on both sides so buffered bookings straddling
	// the range edges are seen.
	from := startOfDay(q.Range.Start, practLoc).Add(-24 * time.Hour)
	to := startOfDay(q.Range.End.AddDays(1), practLoc).Add(24 * time.Hour)
	bookings, err := e.repo.ListBookings(ctx, q.PractitionerID, from, to)
	if err != nil {
		return nil, err
	}

	return &SchedulingContext{
		Practitioner:     *pract,
		Service:          *svc,
		Policy:           *policy,
		Schedules:        schedules,
		ServiceSchedules: serviceSchedules,
		DateOverrides:    overrides,
		Exceptions:       exceptions,
		Bookings:         bookings,
	}, nil
}

func (e *Engine) logIntegrity(err error, q Query) {
	e.log.Error().
		Err(err).
		Str("practitioner_id", q.PractitionerID.String()).
		Str("service_id", q.ServiceID.String()).
		Msg("schedule data rejected")
}
