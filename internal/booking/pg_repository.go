package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitalbook/scheduling/internal/availability"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var status string
	var expiresAt *time.Time

	err := row.Scan(
		&b.ID,
		&b.PractitionerID,
		&b.ServiceID,
		&b.ClientID,
		&b.StartTime,
		&b.EndTime,
		&status,
		&b.Participants,
		&expiresAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	b.Status = availability.BookingStatus(status)
	b.ExpiresAt = expiresAt
	return &b, nil
}

const bookingColumns = `id, practitioner_id, service_id, client_id, start_time, end_time, status, participants, expires_at, created_at, updated_at`

func (r *PgRepository) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

// InsertPending holds row locks on every occupying booking that overlaps the
// new one while it decides, so two commits racing for the last seat serialize
// on the database even if the Redis lock has expired.
func (r *PgRepository) InsertPending(ctx context.Context, b Booking, maxParticipants int) (*Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin insert booking: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT service_id, start_time, participants
		FROM bookings
		WHERE practitioner_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_time < $3
		  AND end_time > $2
		FOR UPDATE
	`, b.PractitionerID, b.StartTime, b.EndTime)
	if err != nil {
		return nil, fmt.Errorf("lock overlapping bookings: %w", err)
	}

	taken := 0
	for rows.Next() {
		var serviceID uuid.UUID
		var start time.Time
		var participants int
		if err := rows.Scan(&serviceID, &start, &participants); err != nil {
			rows.Close()
			return nil, err
		}

		// Any overlap with another service, or any overlap at all on an
		// exclusive service, takes the slot. Group sessions only share when
		// they are the same service at the same start.
		if serviceID != b.ServiceID || maxParticipants <= 1 || !start.Equal(b.StartTime) {
			rows.Close()
			return nil, availability.ErrSlotNoLongerAvailable
		}
		if participants <= 0 {
			participants = 1
		}
		taken += participants
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if taken+b.Participants > maxParticipants {
		return nil, fmt.Errorf("%w: %d of %d seats taken", availability.ErrSlotNoLongerAvailable, taken, maxParticipants)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO bookings (id, practitioner_id, service_id, client_id, start_time, end_time, status, participants, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, $8, now(), now())
		RETURNING `+bookingColumns+`
	`, b.ID, b.PractitionerID, b.ServiceID, b.ClientID, b.StartTime, b.EndTime, b.Participants, b.ExpiresAt)

	created, err := scanBooking(row)
	if err != nil {
		return nil, fmt.Errorf("insert pending booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit insert booking: %w", err)
	}

	return created, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to availability.BookingStatus) (*Booking, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+bookingColumns+`
	`, id, to, from)

	return scanBooking(row)
}

func (r *PgRepository) FindExpiredPending(ctx context.Context, now time.Time) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = 'pending'
		  AND expires_at IS NOT NULL
		  AND expires_at < $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO booking_events (event_type, booking_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.BookingID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert booking event: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
