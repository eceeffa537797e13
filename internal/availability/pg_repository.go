package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository reads the scheduling read model from Postgres. Wall-clock
// times are stored as minutes since midnight, calendar dates as DATE
// columns.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) GetPractitioner(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	var p Practitioner
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, timezone, created_at, updated_at
		FROM practitioners
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Timezone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPractitionerNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) GetService(ctx context.Context, practitionerID, serviceID uuid.UUID) (*Service, error) {
	var s Service
	err := r.pool.QueryRow(ctx, `
		SELECT id, practitioner_id, name, duration_minutes, max_participants, schedule_id, is_active
		FROM services
		WHERE id = $1 AND practitioner_id = $2
	`, serviceID, practitionerID).Scan(
		&s.ID, &s.PractitionerID, &s.Name, &s.DurationMinutes, &s.MaxParticipants, &s.ScheduleID, &s.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &s, nil
}

// GetPolicy returns the practitioner's scheduling policy, or sane defaults
// when no row exists yet.
func (r *PgRepository) GetPolicy(ctx context.Context, practitionerID uuid.UUID) (*SchedulingPolicy, error) {
	var p SchedulingPolicy
	err := r.pool.QueryRow(ctx, `
		SELECT practitioner_id, buffer_time_minutes, advance_booking_hours, advance_booking_days, timezone
		FROM scheduling_policies
		WHERE practitioner_id = $1
	`, practitionerID).Scan(
		&p.PractitionerID, &p.BufferTimeMinutes, &p.AdvanceBookingHours, &p.AdvanceBookingDays, &p.Timezone,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &SchedulingPolicy{
				PractitionerID:      practitionerID,
				AdvanceBookingHours: 24,
				AdvanceBookingDays:  60,
			}, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) ListRecurringSchedules(ctx context.Context, practitionerID uuid.UUID) ([]RecurringSchedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, practitioner_id, name, timezone, is_default, is_active
		FROM recurring_schedules
		WHERE practitioner_id = $1
	`, practitionerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []RecurringSchedule
	byID := make(map[uuid.UUID]int)
	for rows.Next() {
		var s RecurringSchedule
		if err := rows.Scan(&s.ID, &s.PractitionerID, &s.Name, &s.Timezone, &s.IsDefault, &s.IsActive); err != nil {
			return nil, err
		}
		byID[s.ID] = len(schedules)
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(schedules) == 0 {
		return nil, nil
	}

	slotRows, err := r.pool.Query(ctx, `
		SELECT ts.id, ts.schedule_id, ts.weekday, ts.start_minute, ts.end_minute, ts.is_active
		FROM schedule_time_slots ts
		JOIN recurring_schedules s ON s.id = ts.schedule_id
		WHERE s.practitioner_id = $1
		ORDER BY ts.weekday, ts.start_minute
	`, practitionerID)
	if err != nil {
		return nil, err
	}
	defer slotRows.Close()

	for slotRows.Next() {
		var ts TimeSlot
		var weekday, start, end int32
		if err := slotRows.Scan(&ts.ID, &ts.ScheduleID, &weekday, &start, &end, &ts.IsActive); err != nil {
			return nil, err
		}
		ts.Weekday = Weekday(weekday)
		ts.Start = TimeOfDay(start)
		ts.End = TimeOfDay(end)

		idx, ok := byID[ts.ScheduleID]
		if !ok {
			return nil, fmt.Errorf("time slot %s references unknown schedule %s", ts.ID, ts.ScheduleID)
		}
		schedules[idx].TimeSlots = append(schedules[idx].TimeSlots, ts)
	}
	if err := slotRows.Err(); err != nil {
		return nil, err
	}

	return schedules, nil
}

func (r *PgRepository) ListServiceSchedules(ctx context.Context, practitionerID, serviceID uuid.UUID) ([]ServiceSchedule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, practitioner_id, service_id, weekday, start_minute, end_minute, is_active
		FROM service_schedules
		WHERE practitioner_id = $1 AND service_id = $2
		ORDER BY weekday, start_minute
	`, practitionerID, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ServiceSchedule
	for rows.Next() {
		var ss ServiceSchedule
		var weekday, start, end int32
		if err := rows.Scan(&ss.ID, &ss.PractitionerID, &ss.ServiceID, &weekday, &start, &end, &ss.IsActive); err != nil {
			return nil, err
		}
		ss.Weekday = Weekday(weekday)
		ss.Start = TimeOfDay(start)
		ss.End = TimeOfDay(end)
		out = append(out, ss)
	}
	return out, rows.Err()
}

func (r *PgRepository) ListDateOverrides(ctx context.Context, practitionerID uuid.UUID, dr DateRange) ([]DateOverride, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, practitioner_id, service_schedule_id, date, start_minute, end_minute, is_active
		FROM date_overrides
		WHERE practitioner_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date, start_minute
	`, practitionerID, dr.Start.String(), dr.End.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DateOverride
	for rows.Next() {
		var ov DateOverride
		var date time.Time
		var start, end int32
		if err := rows.Scan(&ov.ID, &ov.PractitionerID, &ov.ServiceScheduleID, &date, &start, &end, &ov.IsActive); err != nil {
			return nil, err
		}
		ov.Date = DateOf(date)
		ov.Start = TimeOfDay(start)
		ov.End = TimeOfDay(end)
		out = append(out, ov)
	}
	return out, rows.Err()
}

func (r *PgRepository) ListExceptions(ctx context.Context, practitionerID uuid.UUID) ([]AvailabilityException, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, practitioner_id, type, start_date, end_date, start_minute, end_minute,
		       is_recurring, affects_all_services, service_ids
		FROM availability_exceptions
		WHERE practitioner_id = $1
	`, practitionerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AvailabilityException
	for rows.Next() {
		var ex AvailabilityException
		var exType string
		var startDate, endDate time.Time
		var start, end *int32
		if err := rows.Scan(
			&ex.ID, &ex.PractitionerID, &exType, &startDate, &endDate, &start, &end,
			&ex.IsRecurring, &ex.AffectsAllServices, &ex.ServiceIDs,
		); err != nil {
			return nil, err
		}
		ex.Type = ExceptionType(exType)
		ex.StartDate = DateOf(startDate)
		ex.EndDate = DateOf(endDate)
		if start != nil {
			t := TimeOfDay(*start)
			ex.Start = &t
		}
		if end != nil {
			t := TimeOfDay(*end)
			ex.End = &t
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

func (r *PgRepository) ListBookings(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]BookingInterval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, service_id, start_time, end_time, status, participants
		FROM bookings
		WHERE practitioner_id = $1
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time
	`, practitionerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BookingInterval
	for rows.Next() {
		var b BookingInterval
		var status string
		if err := rows.Scan(&b.ID, &b.ServiceID, &b.StartTime, &b.EndTime, &status, &b.Participants); err != nil {
			return nil, err
		}
		b.Status = BookingStatus(status)
		out = append(out, b)
	}
	return out, rows.Err()
}
