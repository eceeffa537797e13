package availability

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mondayWeek is a Monday-through-Sunday query window starting 2026-09-07.
var mondayWeek = DateRange{
	Start: Date{Year: 2026, Month: time.September, Day: 7},
	End:   Date{Year: 2026, Month: time.September, Day: 13},
}

func tod(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func todPtr(s string) *TimeOfDay {
	t := tod(s)
	return &t
}

// resolverContext builds a practitioner with one default schedule open
// Monday 09:00-12:00 and an exclusive 60-minute service.
func resolverContext() *SchedulingContext {
	scheduleID := uuid.New()
	practitionerID := uuid.New()
	return &SchedulingContext{
		Practitioner: Practitioner{ID: practitionerID, Timezone: "UTC"},
		Service: Service{
			ID:              uuid.New(),
			PractitionerID:  practitionerID,
			DurationMinutes: 60,
			MaxParticipants: 1,
			IsActive:        true,
		},
		Policy: SchedulingPolicy{PractitionerID: practitionerID, Timezone: "UTC"},
		Schedules: []RecurringSchedule{{
			ID:             scheduleID,
			PractitionerID: practitionerID,
			Name:           "Standard",
			Timezone:       "UTC",
			IsDefault:      true,
			IsActive:       true,
			TimeSlots: []TimeSlot{{
				ID:         uuid.New(),
				ScheduleID: scheduleID,
				Weekday:    Monday,
				Start:      tod("09:00"),
				End:        tod("12:00"),
				IsActive:   true,
			}},
		}},
	}
}

func TestResolveRecurringFallback(t *testing.T) {
	sc := resolverContext()

	raw, err := resolveRawIntervals(sc, mondayWeek)
	require.NoError(t, err)

	require.Len(t, raw, 1)
	assert.Equal(t, mondayWeek.Start, raw[0].Date)
	assert.Equal(t, tod("09:00"), raw[0].Start)
	assert.Equal(t, tod("12:00"), raw[0].End)
	assert.Equal(t, SourceRecurring, raw[0].Source)
}

func TestResolveServiceScheduleOverridesWeekday(t *testing.T) {
	sc := resolverContext()
	sc.ServiceSchedules = []ServiceSchedule{{
		ID:        uuid.New(),
		ServiceID: sc.Service.ID,
		Weekday:   Monday,
		Start:     tod("10:00"),
		End:       tod("11:00"),
		IsActive:  true,
	}}

	raw, err := resolveRawIntervals(sc, mondayWeek)
	require.NoError(t, err)

	require.Len(t, raw, 1)
	assert.Equal(t, SourceServiceSchedule, raw[0].Source)
	assert.Equal(t, tod("10:00"), raw[0].Start)
	assert.Equal(t, tod("11:00"), raw[0].End)
}

func TestResolveInactiveServiceScheduleClosesWeekday(t *testing.T) {
	sc := resolverContext()
	sc.ServiceSchedules = []ServiceSchedule{{
		ID:        uuid.New(),
		ServiceID: sc.Service.ID,
		Weekday:   Monday,
		Start:     tod("10:00"),
		End:       tod("11:00"),
		IsActive:  false,
	}}

	raw, err := resolveRawIntervals(sc, mondayWeek)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestResolveDateOverrideWinsOverEverything(t *testing.T) {
	sc := resolverContext()
	sc.ServiceSchedules = []ServiceSchedule{{
		ID:        uuid.New(),
		ServiceID: sc.Service.ID,
		Weekday:   Monday,
		Start:     tod("10:00"),
		End:       tod("11:00"),
		IsActive:  true,
	}}
	sc.DateOverrides = []DateOverride{{
		ID:       uuid.New(),
		Date:     mondayWeek.Start,
		Start:    tod("13:00"),
		End:      tod("15:00"),
		IsActive: true,
	}}

	raw, err := resolveRawIntervals(sc, mondayWeek)
	require.NoError(t, err)

	require.Len(t, raw, 1)
	assert.Equal(t, SourceDateOverride, raw[0].Source)
	assert.Equal(t, tod("13:00"), raw[0].Start)
	assert.Equal(t, tod("15:00"), raw[0].End)
}

func TestResolveInactiveOverrideClosesDay(t *testing.T) {
	sc := resolverContext()
	sc.DateOverrides = []DateOverride{{
		ID:       uuid.New(),
		Date:     mondayWeek.Start,
		IsActive: false,
	}}

	// Two Mondays in a two-week window; only the overridden one closes.
	twoWeeks := DateRange{Start: mondayWeek.Start, End: mondayWeek.End.AddDays(7)}
	raw, err := resolveRawIntervals(sc, twoWeeks)
	require.NoError(t, err)

	require.Len(t, raw, 1)
	assert.Equal(t, mondayWeek.Start.AddDays(7), raw[0].Date)
	assert.Equal(t, SourceRecurring, raw[0].Source)
}

func TestResolveNoDefaultScheduleMeansClosed(t *testing.T) {
	sc := resolverContext()
	sc.Schedules[0].IsDefault = false

	raw, err := resolveRawIntervals(sc, mondayWeek)
	require.NoError(t, err)
	assert.Empty(t, raw)
}

func TestResolvePinnedSchedule(t *testing.T) {
	sc := resolverContext()
	pinned := uuid.New()
	sc.Schedules = append(sc.Schedules, RecurringSchedule{
		ID:        pinned,
		Name:      "Evenings",
		Timezone:  "UTC",
		IsDefault: false,
		IsActive:  true,
		TimeSlots: []TimeSlot{{
			ID:         uuid.New(),
			ScheduleID: pinned,
			Weekday:    Tuesday,
			Start:      tod("18:00"),
			End:        tod("21:00"),
			IsActive:   true,
		}},
	})
	sc.Service.ScheduleID = &pinned

	raw, err := resolveRawIntervals(sc, mondayWeek)
	require.NoError(t, err)

	require.Len(t, raw, 1)
	assert.Equal(t, Tuesday, raw[0].Date.Weekday())
	assert.Equal(t, tod("18:00"), raw[0].Start)
}

func TestResolveUnknownPinnedSchedule(t *testing.T) {
	sc := resolverContext()
	missing := uuid.New()
	sc.Service.ScheduleID = &missing

	_, err := resolveRawIntervals(sc, mondayWeek)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestResolveOverlappingSlotsRejected(t *testing.T) {
	sc := resolverContext()
	sc.Schedules[0].TimeSlots = append(sc.Schedules[0].TimeSlots, TimeSlot{
		ID:         uuid.New(),
		ScheduleID: sc.Schedules[0].ID,
		Weekday:    Monday,
		Start:      tod("11:00"),
		End:        tod("13:00"),
		IsActive:   true,
	})

	_, err := resolveRawIntervals(sc, mondayWeek)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestResolveMalformedSlotRejected(t *testing.T) {
	sc := resolverContext()
	sc.Schedules[0].TimeSlots[0].End = tod("08:00") // before start

	_, err := resolveRawIntervals(sc, mondayWeek)
	assert.ErrorIs(t, err, ErrDataIntegrity)
}

func TestResolveMultipleWindowsPerDay(t *testing.T) {
	sc := resolverContext()
	sc.Schedules[0].TimeSlots = append(sc.Schedules[0].TimeSlots, TimeSlot{
		ID:         uuid.New(),
		ScheduleID: sc.Schedules[0].ID,
		Weekday:    Monday,
		Start:      tod("14:00"),
		End:        tod("17:00"),
		IsActive:   true,
	})

	raw, err := resolveRawIntervals(sc, mondayWeek)
	require.NoError(t, err)
	assert.Len(t, raw, 2)
}
