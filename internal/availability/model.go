package availability

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Weekday follows the schedule convention: 0 = Monday .. 6 = Sunday.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// WeekdayOf converts time.Weekday (0 = Sunday) to the schedule convention.
func WeekdayOf(w time.Weekday) Weekday {
	return Weekday((int(w) + 6) % 7)
}

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" in 24h format.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// Clock returns the hour and minute components.
func (t TimeOfDay) Clock() (hour, min int) {
	return int(t) / 60, int(t) % 60
}

func (t TimeOfDay) String() string {
	h, m := t.Clock()
	return fmt.Sprintf("%02d:%02d", h, m)
}

// Date is a calendar date with no timezone attached. Schedule configuration
// refers to dates in the practitioner's zone; a Date only becomes an instant
// once combined with a TimeOfDay and a location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf extracts the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

func (d Date) After(other Date) bool {
	return other.Before(d)
}

// Weekday returns the weekday of d in the schedule convention.
func (d Date) Weekday() Weekday {
	return WeekdayOf(time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday())
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// DateRange is an inclusive calendar date window.
type DateRange struct {
	Start Date
	End   Date
}

// Days returns the number of calendar days covered by the range.
func (r DateRange) Days() int {
	a := time.Date(r.Start.Year, r.Start.Month, r.Start.Day, 0, 0, 0, 0, time.UTC)
	b := time.Date(r.End.Year, r.End.Month, r.End.Day, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours()/24) + 1
}

type Practitioner struct {
	ID        uuid.UUID
	Name      string
	Timezone  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Service is a bookable offering. MaxParticipants == 1 means the service is
// exclusive; greater than 1 means group capacity accounting applies.
type Service struct {
	ID              uuid.UUID
	PractitionerID  uuid.UUID
	Name            string
	DurationMinutes int
	MaxParticipants int
	// ScheduleID optionally pins the service to a named schedule instead of
	// the practitioner's default one.
	ScheduleID *uuid.UUID
	IsActive   bool
}

// RecurringSchedule is a named weekly availability template.
type RecurringSchedule struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	Name           string
	Timezone       string
	IsDefault      bool
	IsActive       bool
	TimeSlots      []TimeSlot
}

// TimeSlot is one availability window on a single weekday of a schedule.
type TimeSlot struct {
	ID         uuid.UUID
	ScheduleID uuid.UUID
	Weekday    Weekday
	Start      TimeOfDay
	End        TimeOfDay // exclusive
	IsActive   bool
}

// ServiceSchedule overrides the recurring schedule for one service on one
// weekday. Any active entry for a weekday replaces the recurring slots for
// that weekday entirely.
type ServiceSchedule struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	ServiceID      uuid.UUID
	Weekday        Weekday
	Start          TimeOfDay
	End            TimeOfDay
	IsActive       bool
}

// DateOverride pins availability for one calendar date. The presence of any
// override for a date, active or not, makes the date's intervals come from
// overrides alone. An inactive override contributes no interval, so a single
// inactive row closes an otherwise open day.
type DateOverride struct {
	ID                uuid.UUID
	PractitionerID    uuid.UUID
	ServiceScheduleID *uuid.UUID
	Date              Date
	Start             TimeOfDay
	End               TimeOfDay
	IsActive          bool
}

type ExceptionType string

const (
	ExceptionVacation ExceptionType = "vacation"
	ExceptionHoliday  ExceptionType = "holiday"
	ExceptionPersonal ExceptionType = "personal"
	ExceptionTraining ExceptionType = "training"
	ExceptionOther    ExceptionType = "other"
)

// AvailabilityException blocks time regardless of schedules. With no
// time-of-day sub-range it blocks whole days; with one it blocks that
// sub-range on each day of the date span.
type AvailabilityException struct {
	ID                 uuid.UUID
	PractitionerID     uuid.UUID
	Type               ExceptionType
	StartDate          Date
	EndDate            Date // inclusive
	Start              *TimeOfDay
	End                *TimeOfDay
	IsRecurring        bool // repeats every year
	AffectsAllServices bool
	ServiceIDs         []uuid.UUID
}

// AppliesTo reports whether the exception blocks time for the given service.
func (e AvailabilityException) AppliesTo(serviceID uuid.UUID) bool {
	if e.AffectsAllServices {
		return true
	}
	for _, id := range e.ServiceIDs {
		if id == serviceID {
			return true
		}
	}
	return false
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingNoShow    BookingStatus = "no_show"
	BookingExpired   BookingStatus = "expired"
)

// Occupies reports whether a booking in this status consumes calendar time.
// Pending bookings occupy time like confirmed ones so that a slot cannot be
// double-sold while payment is in flight; abandoned pending bookings are
// reaped by the expiry worker.
func (s BookingStatus) Occupies() bool {
	return s == BookingPending || s == BookingConfirmed
}

// BookingInterval is the engine's read-only view of an existing booking.
type BookingInterval struct {
	ID           uuid.UUID
	ServiceID    uuid.UUID
	StartTime    time.Time
	EndTime      time.Time
	Status       BookingStatus
	Participants int
}

// SchedulingPolicy is per-practitioner booking configuration.
type SchedulingPolicy struct {
	PractitionerID      uuid.UUID
	BufferTimeMinutes   int
	AdvanceBookingHours int // minimum notice
	AdvanceBookingDays  int // maximum horizon
	Timezone            string
}

// SchedulingContext is the immutable read model a single availability query
// runs against. It is assembled once per query and no pipeline stage mutates
// it.
type SchedulingContext struct {
	Practitioner     Practitioner
	Service          Service
	Policy           SchedulingPolicy
	Schedules        []RecurringSchedule
	ServiceSchedules []ServiceSchedule
	DateOverrides    []DateOverride
	Exceptions       []AvailabilityException
	Bookings         []BookingInterval
}

// Slot is one bookable unit in the caller's requested timezone.
type Slot struct {
	Date              Date      `json:"date"`
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	RemainingCapacity int       `json:"remaining_capacity"`
}

// Availability is the result of one GetAvailability call.
type Availability struct {
	Slots    []Slot    `json:"slots"`
	Timezone string    `json:"timezone"`
	Range    DateRange `json:"range"`
}
