package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalbook/scheduling/internal/availability"
	"github.com/vitalbook/scheduling/internal/config"
	redisclient "github.com/vitalbook/scheduling/internal/redis"
)

var testNow = time.Date(2026, time.September, 3, 10, 0, 0, 0, time.UTC)

type stubCatalog struct {
	service *availability.Service
	err     error
}

func (c *stubCatalog) GetService(_ context.Context, _, _ uuid.UUID) (*availability.Service, error) {
	return c.service, c.err
}

type stubEngine struct {
	avail *availability.Availability
	err   error
}

func (e *stubEngine) GetAvailability(_ context.Context, _ availability.Query) (*availability.Availability, error) {
	return e.avail, e.err
}

type stubLocker struct {
	contended bool
	calls     int
}

func (l *stubLocker) WithSlotLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	l.calls++
	if l.contended {
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}

type stubInvalidator struct {
	practitioners []uuid.UUID
}

func (i *stubInvalidator) Invalidate(_ context.Context, practitionerID uuid.UUID) error {
	i.practitioners = append(i.practitioners, practitionerID)
	return nil
}

type memRepo struct {
	bookings  map[uuid.UUID]*Booking
	events    []EventLog
	insertErr error
}

func newMemRepo() *memRepo {
	return &memRepo{bookings: make(map[uuid.UUID]*Booking)}
}

func (r *memRepo) GetBooking(_ context.Context, id uuid.UUID) (*Booking, error) {
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memRepo) InsertPending(_ context.Context, b Booking, _ int) (*Booking, error) {
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	b.Status = availability.BookingPending
	b.CreatedAt = testNow
	b.UpdatedAt = testNow
	stored := b
	r.bookings[b.ID] = &stored
	cp := b
	return &cp, nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to availability.BookingStatus) (*Booking, error) {
	b, ok := r.bookings[id]
	if !ok || b.Status != from {
		return nil, ErrBookingNotFound
	}
	b.Status = to
	cp := *b
	return &cp, nil
}

func (r *memRepo) FindExpiredPending(_ context.Context, now time.Time) ([]Booking, error) {
	var out []Booking
	for _, b := range r.bookings {
		if b.Status == availability.BookingPending && b.ExpiresAt != nil && b.ExpiresAt.Before(now) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memRepo) InsertEvent(_ context.Context, ev EventLog) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *memRepo) eventTypes() []string {
	var out []string
	for _, ev := range r.events {
		out = append(out, ev.EventType)
	}
	return out
}

type fixture struct {
	svc     *Service
	catalog *stubCatalog
	engine  *stubEngine
	repo    *memRepo
	locker  *stubLocker
	cache   *stubInvalidator

	practitionerID uuid.UUID
	serviceID      uuid.UUID
	slotStart      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		catalog:        &stubCatalog{},
		engine:         &stubEngine{},
		repo:           newMemRepo(),
		locker:         &stubLocker{},
		cache:          &stubInvalidator{},
		practitionerID: uuid.New(),
		serviceID:      uuid.New(),
		slotStart:      time.Date(2026, time.September, 7, 9, 0, 0, 0, time.UTC),
	}

	f.catalog.service = &availability.Service{
		ID:              f.serviceID,
		PractitionerID:  f.practitionerID,
		Name:            "Deep Tissue Massage",
		DurationMinutes: 60,
		MaxParticipants: 1,
		IsActive:        true,
	}
	f.engine.avail = &availability.Availability{
		Slots: []availability.Slot{{
			Date:              availability.DateOf(f.slotStart),
			Start:             f.slotStart,
			End:               f.slotStart.Add(time.Hour),
			RemainingCapacity: 1,
		}},
		Timezone: "UTC",
	}

	cfg := config.Config{BookingTTL: 10 * time.Minute}
	f.svc = NewService(f.catalog, f.engine, f.repo, f.locker, f.cache, cfg, zerolog.Nop()).
		WithClock(func() time.Time { return testNow })
	return f
}

func (f *fixture) createRequest() CreateRequest {
	return CreateRequest{
		PractitionerID: f.practitionerID,
		ServiceID:      f.serviceID,
		ClientID:       uuid.New(),
		Start:          f.slotStart,
	}
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.CreateBooking(context.Background(), f.createRequest())
	require.NoError(t, err)

	assert.Equal(t, availability.BookingPending, created.Status)
	assert.Equal(t, 1, created.Participants)
	assert.True(t, created.StartTime.Equal(f.slotStart))
	assert.True(t, created.EndTime.Equal(f.slotStart.Add(time.Hour)))
	require.NotNil(t, created.ExpiresAt)
	assert.True(t, created.ExpiresAt.Equal(testNow.Add(10*time.Minute)))

	assert.Equal(t, 1, f.locker.calls)
	assert.Equal(t, []string{EventBookingCreated}, f.repo.eventTypes())
	assert.Equal(t, []uuid.UUID{f.practitionerID}, f.cache.practitioners)
}

func TestCreateBookingSlotGone(t *testing.T) {
	f := newFixture(t)
	f.engine.avail = &availability.Availability{Timezone: "UTC"}

	_, err := f.svc.CreateBooking(context.Background(), f.createRequest())
	require.ErrorIs(t, err, availability.ErrSlotNoLongerAvailable)
	assert.Empty(t, f.repo.bookings)
	assert.Empty(t, f.cache.practitioners)
}

func TestCreateBookingLosesInsertRace(t *testing.T) {
	f := newFixture(t)
	f.repo.insertErr = availability.ErrSlotNoLongerAvailable

	_, err := f.svc.CreateBooking(context.Background(), f.createRequest())
	require.ErrorIs(t, err, availability.ErrSlotNoLongerAvailable)
}

func TestCreateBookingContendedLock(t *testing.T) {
	f := newFixture(t)
	f.locker.contended = true

	_, err := f.svc.CreateBooking(context.Background(), f.createRequest())
	require.ErrorIs(t, err, ErrSlotContended)
	assert.Empty(t, f.repo.bookings)
}

func TestCreateBookingGroupCapacity(t *testing.T) {
	f := newFixture(t)
	f.catalog.service.MaxParticipants = 6
	f.engine.avail.Slots[0].RemainingCapacity = 2

	req := f.createRequest()
	req.Participants = 3
	_, err := f.svc.CreateBooking(context.Background(), req)
	require.ErrorIs(t, err, availability.ErrSlotNoLongerAvailable)

	req.Participants = 2
	created, err := f.svc.CreateBooking(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, created.Participants)
}

func TestCreateBookingParticipantsOverCapacity(t *testing.T) {
	f := newFixture(t)

	req := f.createRequest()
	req.Participants = 2
	_, err := f.svc.CreateBooking(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidParticipants)
}

func TestCreateBookingInactiveService(t *testing.T) {
	f := newFixture(t)
	f.catalog.service.IsActive = false

	_, err := f.svc.CreateBooking(context.Background(), f.createRequest())
	require.ErrorIs(t, err, availability.ErrServiceNotFound)
}

func TestConfirmBooking(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateBooking(context.Background(), f.createRequest())
	require.NoError(t, err)

	confirmed, err := f.svc.ConfirmBooking(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, availability.BookingConfirmed, confirmed.Status)
	assert.Contains(t, f.repo.eventTypes(), EventBookingConfirmed)
}

func TestConfirmBookingAfterDeadline(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateBooking(context.Background(), f.createRequest())
	require.NoError(t, err)

	late := testNow.Add(time.Hour)
	f.svc.WithClock(func() time.Time { return late })

	_, err = f.svc.ConfirmBooking(context.Background(), created.ID)
	require.ErrorIs(t, err, ErrBookingExpired)

	stored, err := f.repo.GetBooking(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, availability.BookingExpired, stored.Status)
}

func TestConfirmBookingWrongStatus(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateBooking(context.Background(), f.createRequest())
	require.NoError(t, err)

	_, err = f.svc.CancelBooking(context.Background(), created.ID)
	require.NoError(t, err)

	_, err = f.svc.ConfirmBooking(context.Background(), created.ID)
	require.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestConfirmBookingNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ConfirmBooking(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCancelBooking(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateBooking(context.Background(), f.createRequest())
	require.NoError(t, err)

	cancelled, err := f.svc.CancelBooking(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, availability.BookingCancelled, cancelled.Status)

	// Cancelling twice is rejected.
	_, err = f.svc.CancelBooking(context.Background(), created.ID)
	require.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestCancelConfirmedBooking(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateBooking(context.Background(), f.createRequest())
	require.NoError(t, err)
	_, err = f.svc.ConfirmBooking(context.Background(), created.ID)
	require.NoError(t, err)

	cancelled, err := f.svc.CancelBooking(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, availability.BookingCancelled, cancelled.Status)
}

func TestExpirePendingBookings(t *testing.T) {
	f := newFixture(t)
	f.engine.avail.Slots = append(f.engine.avail.Slots, availability.Slot{
		Date:              availability.DateOf(f.slotStart),
		Start:             f.slotStart.Add(time.Hour),
		End:               f.slotStart.Add(2 * time.Hour),
		RemainingCapacity: 1,
	})

	first, err := f.svc.CreateBooking(context.Background(), f.createRequest())
	require.NoError(t, err)

	second := f.createRequest()
	second.Start = f.slotStart.Add(time.Hour)
	_, err = f.svc.CreateBooking(context.Background(), second)
	require.NoError(t, err)

	// Confirmed bookings survive the reaper even past their deadline.
	_, err = f.svc.ConfirmBooking(context.Background(), first.ID)
	require.NoError(t, err)

	f.svc.WithClock(func() time.Time { return testNow.Add(time.Hour) })

	expired, err := f.svc.ExpirePendingBookings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	stored, err := f.repo.GetBooking(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, availability.BookingConfirmed, stored.Status)
}
