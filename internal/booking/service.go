package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vitalbook/scheduling/internal/availability"
	"github.com/vitalbook/scheduling/internal/config"
	"github.com/vitalbook/scheduling/internal/metrics"
	redisclient "github.com/vitalbook/scheduling/internal/redis"
)

// AvailabilityEngine is the slice of the engine the booking path needs.
type AvailabilityEngine interface {
	GetAvailability(ctx context.Context, q availability.Query) (*availability.Availability, error)
}

// Catalog resolves the service being booked. Satisfied by the availability
// package's repositories.
type Catalog interface {
	GetService(ctx context.Context, practitionerID, serviceID uuid.UUID) (*availability.Service, error)
}

// Invalidator drops cached availability for a practitioner after their
// calendar changes.
type Invalidator interface {
	Invalidate(ctx context.Context, practitionerID uuid.UUID) error
}

// CreateRequest describes one booking attempt.
type CreateRequest struct {
	PractitionerID uuid.UUID
	ServiceID      uuid.UUID
	ClientID       uuid.UUID
	Start          time.Time
	Participants   int
	// GranularityMinutes echoes the grid the client fetched availability
	// with, so the commit-time re-validation reproduces the same candidate
	// starts. Zero means the service-duration grid.
	GranularityMinutes int
}

type Service struct {
	catalog Catalog
	engine  AvailabilityEngine
	repo    Repository
	locker  redisclient.Locker
	cache   Invalidator
	cfg     config.Config
	log     zerolog.Logger
	now     func() time.Time
}

func NewService(catalog Catalog, engine AvailabilityEngine, repo Repository, locker redisclient.Locker, cache Invalidator, cfg config.Config, log zerolog.Logger) *Service {
	return &Service{
		catalog: catalog,
		engine:  engine,
		repo:    repo,
		locker:  locker,
		cache:   cache,
		cfg:     cfg,
		log:     log.With().Str("component", "booking").Logger(),
		now:     time.Now,
	}
}

// WithClock overrides the service's time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateBooking reserves a slot as a pending booking. The slot is
// re-validated against a fresh availability computation inside a distributed
// lock, and the insert itself re-checks overlaps transactionally, so a slot
// that was available when the client saw it but is gone now surfaces as
// availability.ErrSlotNoLongerAvailable rather than a double booking.
func (s *Service) CreateBooking(ctx context.Context, req CreateRequest) (*Booking, error) {
	svc, err := s.catalog.GetService(ctx, req.PractitionerID, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.IsActive {
		return nil, fmt.Errorf("%w: service %s is inactive", availability.ErrServiceNotFound, svc.ID)
	}

	participants := req.Participants
	if participants == 0 {
		participants = 1
	}
	if participants < 0 || participants > svc.MaxParticipants {
		return nil, fmt.Errorf("%w: %d for a capacity of %d", ErrInvalidParticipants, participants, svc.MaxParticipants)
	}

	end := req.Start.Add(time.Duration(svc.DurationMinutes) * time.Minute)

	var created *Booking

	err = s.locker.WithSlotLock(ctx, req.PractitionerID, req.Start, func(lockCtx context.Context) error {
		capacity, err := s.slotCapacity(lockCtx, req)
		if err != nil {
			return err
		}
		if capacity < participants {
			return fmt.Errorf("%w: %d seats left", availability.ErrSlotNoLongerAvailable, capacity)
		}

		expiresAt := s.now().Add(s.cfg.BookingTTL)
		b := Booking{
			ID:             uuid.New(),
			PractitionerID: req.PractitionerID,
			ServiceID:      req.ServiceID,
			ClientID:       req.ClientID,
			StartTime:      req.Start,
			EndTime:        end,
			Participants:   participants,
			ExpiresAt:      &expiresAt,
		}

		created, err = s.repo.InsertPending(lockCtx, b, svc.MaxParticipants)
		if err != nil {
			return err
		}

		s.logEvent(lockCtx, created.ID, EventBookingCreated, map[string]any{
			"practitioner_id": req.PractitionerID.String(),
			"service_id":      req.ServiceID.String(),
			"client_id":       req.ClientID.String(),
			"start":           req.Start,
			"expires_at":      expiresAt,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			metrics.Bookings.WithLabelValues("contended").Inc()
			return nil, ErrSlotContended
		}
		if errors.Is(err, availability.ErrSlotNoLongerAvailable) {
			metrics.Bookings.WithLabelValues("conflict").Inc()
		}
		return nil, err
	}

	metrics.Bookings.WithLabelValues("created").Inc()
	s.invalidate(ctx, req.PractitionerID)

	return created, nil
}

// slotCapacity recomputes availability around the requested start and returns
// the remaining capacity of the matching slot, zero when no slot starts
// there.
func (s *Service) slotCapacity(ctx context.Context, req CreateRequest) (int, error) {
	day := availability.DateOf(req.Start.UTC())
	avail, err := s.engine.GetAvailability(ctx, availability.Query{
		PractitionerID: req.PractitionerID,
		ServiceID:      req.ServiceID,
		// A day of margin on both sides covers any timezone offset between
		// the slot's zone and UTC.
		Range:              availability.DateRange{Start: day.AddDays(-1), End: day.AddDays(1)},
		Timezone:           "UTC",
		GranularityMinutes: req.GranularityMinutes,
	})
	if err != nil {
		return 0, fmt.Errorf("revalidate slot: %w", err)
	}

	for _, slot := range avail.Slots {
		if slot.Start.Equal(req.Start) {
			return slot.RemainingCapacity, nil
		}
	}
	return 0, nil
}

// ConfirmBooking moves a pending booking to confirmed.
func (s *Service) ConfirmBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if b.Status == availability.BookingExpired {
		return nil, ErrBookingExpired
	}

	if b.ExpiresAt != nil && b.ExpiresAt.Before(s.now()) {
		// Reap it now rather than waiting for the worker.
		if _, updErr := s.repo.UpdateStatus(ctx, b.ID, availability.BookingPending, availability.BookingExpired); updErr != nil && !errors.Is(updErr, ErrBookingNotFound) {
			s.log.Error().Err(updErr).Str("booking_id", b.ID.String()).Msg("failed to expire booking during confirm")
		}
		s.logEvent(ctx, b.ID, EventBookingExpired, map[string]any{"reason": "confirm_after_expiry"})
		s.invalidate(ctx, b.PractitionerID)
		return nil, ErrBookingExpired
	}

	if b.Status != availability.BookingPending {
		return nil, fmt.Errorf("%w: %s to confirmed", ErrInvalidStatusTransition, b.Status)
	}

	updated, err := s.repo.UpdateStatus(ctx, b.ID, availability.BookingPending, availability.BookingConfirmed)
	if err != nil {
		return nil, fmt.Errorf("confirm booking: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventBookingConfirmed, map[string]any{})
	metrics.Bookings.WithLabelValues("confirmed").Inc()

	return updated, nil
}

// CancelBooking cancels a pending or confirmed booking, releasing its time.
func (s *Service) CancelBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if !b.Status.Occupies() {
		return nil, fmt.Errorf("%w: %s to cancelled", ErrInvalidStatusTransition, b.Status)
	}

	updated, err := s.repo.UpdateStatus(ctx, b.ID, b.Status, availability.BookingCancelled)
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventBookingCancelled, map[string]any{"previous_status": string(b.Status)})
	metrics.Bookings.WithLabelValues("cancelled").Inc()
	s.invalidate(ctx, b.PractitionerID)

	return updated, nil
}

// ExpirePendingBookings releases every pending booking past its deadline.
// Called periodically by the worker; returns how many were released.
func (s *Service) ExpirePendingBookings(ctx context.Context) (int, error) {
	candidates, err := s.repo.FindExpiredPending(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("find expired pending bookings: %w", err)
	}

	expired := 0
	touched := make(map[uuid.UUID]struct{})
	for _, b := range candidates {
		if _, err := s.repo.UpdateStatus(ctx, b.ID, availability.BookingPending, availability.BookingExpired); err != nil {
			// Already confirmed or cancelled since we listed it.
			if !errors.Is(err, ErrBookingNotFound) {
				s.log.Error().Err(err).Str("booking_id", b.ID.String()).Msg("failed to expire booking")
			}
			continue
		}
		expired++
		touched[b.PractitionerID] = struct{}{}
		s.logEvent(ctx, b.ID, EventBookingExpired, map[string]any{"reason": "worker"})
		metrics.ExpiredBookings.Inc()
	}

	for practitionerID := range touched {
		s.invalidate(ctx, practitionerID)
	}

	return expired, nil
}

func (s *Service) invalidate(ctx context.Context, practitionerID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, practitionerID); err != nil {
		s.log.Warn().Err(err).Str("practitioner_id", practitionerID.String()).Msg("cache invalidation failed")
	}
}

func (s *Service) logEvent(ctx context.Context, bookingID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	id := bookingID

	ev := EventLog{
		EventType: eventType,
		BookingID: &id,
		Payload:   data,
		CreatedAt: s.now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Str("booking_id", bookingID.String()).Msg("failed to insert event log")
	}
}
