package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/vitalbook/scheduling/internal/availability"
)

const (
	EventBookingCreated   = "BOOKING_CREATED"
	EventBookingConfirmed = "BOOKING_CONFIRMED"
	EventBookingCancelled = "BOOKING_CANCELLED"
	EventBookingExpired   = "BOOKING_EXPIRED"
)

// Booking is one client's reservation of a slot. For group services several
// bookings share the same start and end; Participants counts the seats this
// one takes.
type Booking struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	ServiceID      uuid.UUID
	ClientID       uuid.UUID
	StartTime      time.Time
	EndTime        time.Time
	Status         availability.BookingStatus
	Participants   int
	// ExpiresAt is set while the booking is pending. A pending booking past
	// its deadline is reaped by the expiry worker.
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

type EventLog struct {
	EventType string
	BookingID *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}
