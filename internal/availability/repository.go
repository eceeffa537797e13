package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository fetches the read-only inputs one availability query needs. The
// engine performs no other I/O.
type Repository interface {
	GetPractitioner(ctx context.Context, id uuid.UUID) (*Practitioner, error)
	GetService(ctx context.Context, practitionerID, serviceID uuid.UUID) (*Service, error)
	GetPolicy(ctx context.Context, practitionerID uuid.UUID) (*SchedulingPolicy, error)

	// ListRecurringSchedules returns schedules with their time slots loaded.
	ListRecurringSchedules(ctx context.Context, practitionerID uuid.UUID) ([]RecurringSchedule, error)
	ListServiceSchedules(ctx context.Context, practitionerID, serviceID uuid.UUID) ([]ServiceSchedule, error)
	ListDateOverrides(ctx context.Context, practitionerID uuid.UUID, r DateRange) ([]DateOverride, error)
	ListExceptions(ctx context.Context, practitionerID uuid.UUID) ([]AvailabilityException, error)

	// ListBookings returns bookings of any service of the practitioner whose
	// window touches [from, to), regardless of status.
	ListBookings(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]BookingInterval, error)
}
