package availability

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utcInterval(d Date, start, end string) Interval {
	return Interval{
		Start: Normalize(d, tod(start), time.UTC),
		End:   Normalize(d, tod(end), time.UTC),
	}
}

func TestApplyExceptionsFullDay(t *testing.T) {
	sc := resolverContext()
	sc.Exceptions = []AvailabilityException{{
		ID:                 uuid.New(),
		Type:               ExceptionVacation,
		StartDate:          mondayWeek.Start,
		EndDate:            mondayWeek.Start.AddDays(2), // Mon-Wed
		AffectsAllServices: true,
	}}

	intervals := []Interval{
		utcInterval(mondayWeek.Start, "09:00", "12:00"),
		utcInterval(mondayWeek.Start.AddDays(3), "09:00", "12:00"), // Thursday survives
	}

	out, err := applyExceptions(intervals, sc, mondayWeek, time.UTC)
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.Equal(t, intervals[1], out[0])
}

func TestApplyExceptionsPartialDaySplits(t *testing.T) {
	sc := resolverContext()
	sc.Exceptions = []AvailabilityException{{
		ID:                 uuid.New(),
		Type:               ExceptionPersonal,
		StartDate:          mondayWeek.Start,
		EndDate:            mondayWeek.Start,
		Start:              todPtr("10:00"),
		End:                todPtr("11:00"),
		AffectsAllServices: true,
	}}

	out, err := applyExceptions(
		[]Interval{utcInterval(mondayWeek.Start, "09:00", "12:00")},
		sc, mondayWeek, time.UTC,
	)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, utcInterval(mondayWeek.Start, "09:00", "10:00"), out[0])
	assert.Equal(t, utcInterval(mondayWeek.Start, "11:00", "12:00"), out[1])
}

func TestApplyExceptionsRecurringAnnual(t *testing.T) {
	sc := resolverContext()
	sc.Exceptions = []AvailabilityException{{
		ID:   uuid.New(),
		Type: ExceptionHoliday,
		// Defined years ago; recurs every September 7.
		StartDate:          Date{Year: 2020, Month: time.September, Day: 7},
		EndDate:            Date{Year: 2020, Month: time.September, Day: 7},
		IsRecurring:        true,
		AffectsAllServices: true,
	}}

	out, err := applyExceptions(
		[]Interval{utcInterval(mondayWeek.Start, "09:00", "12:00")},
		sc, mondayWeek, time.UTC,
	)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestApplyExceptionsServiceScoped(t *testing.T) {
	sc := resolverContext()
	otherService := uuid.New()
	sc.Exceptions = []AvailabilityException{{
		ID:                 uuid.New(),
		Type:               ExceptionTraining,
		StartDate:          mondayWeek.Start,
		EndDate:            mondayWeek.Start,
		AffectsAllServices: false,
		ServiceIDs:         []uuid.UUID{otherService},
	}}

	in := []Interval{utcInterval(mondayWeek.Start, "09:00", "12:00")}
	out, err := applyExceptions(in, sc, mondayWeek, time.UTC)
	require.NoError(t, err)

	// Exception lists a different service; queried service is untouched.
	assert.Equal(t, in, out)

	sc.Exceptions[0].ServiceIDs = []uuid.UUID{otherService, sc.Service.ID}
	out, err = applyExceptions(in, sc, mondayWeek, time.UTC)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestApplyExceptionsMalformedSubRange(t *testing.T) {
	sc := resolverContext()
	sc.Exceptions = []AvailabilityException{{
		ID:                 uuid.New(),
		Type:               ExceptionOther,
		StartDate:          mondayWeek.Start,
		EndDate:            mondayWeek.Start,
		Start:              todPtr("14:00"),
		End:                todPtr("13:00"),
		AffectsAllServices: true,
	}}

	_, err := applyExceptions(
		[]Interval{utcInterval(mondayWeek.Start, "09:00", "12:00")},
		sc, mondayWeek, time.UTC,
	)
	assert.ErrorIs(t, err, ErrDataIntegrity)
}

func TestExceptionOccurrencesSpanNewYear(t *testing.T) {
	ex := AvailabilityException{
		StartDate:   Date{Year: 2020, Month: time.December, Day: 28},
		EndDate:     Date{Year: 2021, Month: time.January, Day: 3},
		IsRecurring: true,
	}
	r := DateRange{
		Start: Date{Year: 2027, Month: time.January, Day: 1},
		End:   Date{Year: 2027, Month: time.January, Day: 10},
	}

	occs := exceptionOccurrences(ex, r)

	// The occurrence anchored in December 2026 reaches into the queried
	// window.
	found := false
	for _, occ := range occs {
		if occ.Start.Year == 2026 && !occ.End.Before(r.Start) {
			found = true
			assert.Equal(t, Date{Year: 2027, Month: time.January, Day: 3}, occ.End)
		}
	}
	assert.True(t, found)
}
