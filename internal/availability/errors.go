package availability

import "errors"

var (
	ErrPractitionerNotFound = errors.New("practitioner not found")
	ErrServiceNotFound      = errors.New("service not found")

	// ErrInvalidRange covers malformed date windows: start after end or a
	// span wider than the engine's hard maximum.
	ErrInvalidRange = errors.New("invalid date range")

	// ErrConfiguration covers bad schedule configuration: unknown timezone
	// identifiers and overlapping time slots within one schedule.
	ErrConfiguration = errors.New("invalid scheduling configuration")

	// ErrDataIntegrity covers malformed persisted intervals (end <= start)
	// that slipped past creation-time validation. These fail the whole
	// computation rather than being skipped, since skipping would present
	// misleadingly sparse availability.
	ErrDataIntegrity = errors.New("schedule data integrity violation")

	// ErrSlotNoLongerAvailable is returned by the booking collaborator, not
	// the engine itself, when the transactional re-check at commit time
	// finds the target slot taken.
	ErrSlotNoLongerAvailable = errors.New("slot no longer available")
)
