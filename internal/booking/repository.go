package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vitalbook/scheduling/internal/availability"
)

var (
	ErrBookingNotFound = errors.New("booking not found")

	// ErrBookingExpired means the pending booking's deadline passed before it
	// was confirmed.
	ErrBookingExpired = errors.New("booking is expired")

	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrSlotContended means another request holds the slot lock right now.
	// The caller should simply retry.
	ErrSlotContended = errors.New("slot is currently being booked, please retry")

	ErrInvalidParticipants = errors.New("invalid participant count")
)

type Repository interface {
	GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error)
	// InsertPending inserts b as a pending booking if and only if the slot
	// still has room, checked transactionally against every occupying
	// booking that overlaps it. A lost race surfaces as
	// availability.ErrSlotNoLongerAvailable.
	InsertPending(ctx context.Context, b Booking, maxParticipants int) (*Booking, error)
	// UpdateStatus transitions id from one status to another. A booking that
	// is not currently in from yields ErrBookingNotFound.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to availability.BookingStatus) (*Booking, error)
	FindExpiredPending(ctx context.Context, now time.Time) ([]Booking, error)
	InsertEvent(ctx context.Context, ev EventLog) error
}
