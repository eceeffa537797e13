package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vitalbook/scheduling/internal/availability"
	"github.com/vitalbook/scheduling/internal/booking"
	"github.com/vitalbook/scheduling/internal/metrics"
	redisclient "github.com/vitalbook/scheduling/internal/redis"
)

// AvailabilityQueries is the engine surface the read endpoints use.
type AvailabilityQueries interface {
	GetAvailability(ctx context.Context, q availability.Query) (*availability.Availability, error)
	NextAvailableSlot(ctx context.Context, practitionerID, serviceID uuid.UUID, from availability.Date, timezone string) (*availability.Slot, error)
}

// BookingService is the booking surface the write endpoints use.
type BookingService interface {
	CreateBooking(ctx context.Context, req booking.CreateRequest) (*booking.Booking, error)
	ConfirmBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	CancelBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
}

// AvailabilityCache memoizes availability responses. May be nil.
type AvailabilityCache interface {
	Get(ctx context.Context, q availability.Query) (*availability.Availability, bool)
	Set(ctx context.Context, q availability.Query, avail *availability.Availability)
}

func availabilityHandler(engine AvailabilityQueries, cache AvailabilityCache, defaultGranularity int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		practitionerID, serviceID, ok := pathIDs(w, r)
		if !ok {
			return
		}

		q := availability.Query{
			PractitionerID:     practitionerID,
			ServiceID:          serviceID,
			Timezone:           r.URL.Query().Get("tz"),
			GranularityMinutes: defaultGranularity,
		}

		today := availability.DateOf(time.Now().UTC())
		var err error
		q.Range.Start, err = dateParam(r, "start", today)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be YYYY-MM-DD")
			return
		}
		q.Range.End, err = dateParam(r, "end", q.Range.Start.AddDays(6))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end", "end must be YYYY-MM-DD")
			return
		}

		if g := r.URL.Query().Get("granularity"); g != "" {
			q.GranularityMinutes, err = strconv.Atoi(g)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_granularity", "granularity must be an integer number of minutes")
				return
			}
		}

		avail, hit := cacheGet(r.Context(), cache, q)
		if !hit {
			started := time.Now()
			avail, err = engine.GetAvailability(r.Context(), q)
			if err != nil {
				handleAvailabilityError(w, err)
				return
			}
			metrics.AvailabilityDuration.Observe(time.Since(started).Seconds())
			cacheSet(r.Context(), cache, q, avail)
		}

		resp := AvailabilityResponse{
			PractitionerID: practitionerID,
			ServiceID:      serviceID,
			Timezone:       avail.Timezone,
			Start:          q.Range.Start.String(),
			End:            q.Range.End.String(),
			Slots:          make([]SlotResponse, 0, len(avail.Slots)),
		}
		for _, s := range avail.Slots {
			resp.Slots = append(resp.Slots, toSlotResponse(s))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func nextAvailableHandler(engine AvailabilityQueries) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		practitionerID, serviceID, ok := pathIDs(w, r)
		if !ok {
			return
		}

		tz := r.URL.Query().Get("tz")
		from, err := dateParam(r, "from", availability.DateOf(time.Now().UTC()))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from", "from must be YYYY-MM-DD")
			return
		}

		slot, err := engine.NextAvailableSlot(r.Context(), practitionerID, serviceID, from, tz)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		resp := NextAvailableResponse{
			PractitionerID: practitionerID,
			ServiceID:      serviceID,
			Timezone:       tz,
		}
		if slot != nil {
			sr := toSlotResponse(*slot)
			resp.Slot = &sr
			resp.Timezone = slot.Start.Location().String()
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func createBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		practitionerID, err := uuid.Parse(req.PractitionerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "practitioner_id must be a valid UUID")
			return
		}
		serviceID, err := uuid.Parse(req.ServiceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
			return
		}
		clientID, err := uuid.Parse(req.ClientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_client_id", "client_id must be a valid UUID")
			return
		}
		if req.Start.IsZero() {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be an RFC3339 timestamp")
			return
		}

		b, err := svc.CreateBooking(r.Context(), booking.CreateRequest{
			PractitionerID:     practitionerID,
			ServiceID:          serviceID,
			ClientID:           clientID,
			Start:              req.Start,
			Participants:       req.Participants,
			GranularityMinutes: req.GranularityMinutes,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toBookingResponse(b))
	}
}

func confirmBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookingID(w, r)
		if !ok {
			return
		}

		b, err := svc.ConfirmBooking(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func cancelBookingHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := bookingID(w, r)
		if !ok {
			return
		}

		b, err := svc.CancelBooking(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toBookingResponse(b))
	}
}

func handleAvailabilityError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, availability.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range", err.Error())
	case errors.Is(err, availability.ErrPractitionerNotFound):
		writeError(w, http.StatusNotFound, "practitioner_not_found", err.Error())
	case errors.Is(err, availability.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	case errors.Is(err, availability.ErrConfiguration):
		writeError(w, http.StatusUnprocessableEntity, "invalid_configuration", err.Error())
	case errors.Is(err, availability.ErrDataIntegrity):
		writeError(w, http.StatusUnprocessableEntity, "data_integrity", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, availability.ErrPractitionerNotFound):
		writeError(w, http.StatusNotFound, "practitioner_not_found", err.Error())
	case errors.Is(err, availability.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	case errors.Is(err, booking.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, availability.ErrSlotNoLongerAvailable):
		writeError(w, http.StatusConflict, "slot_no_longer_available", err.Error())
	case errors.Is(err, booking.ErrSlotContended),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrBookingExpired):
		writeError(w, http.StatusConflict, "booking_expired", err.Error())
	case errors.Is(err, booking.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrInvalidParticipants):
		writeError(w, http.StatusUnprocessableEntity, "invalid_participants", err.Error())
	case errors.Is(err, availability.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_range", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:             b.ID,
		PractitionerID: b.PractitionerID,
		ServiceID:      b.ServiceID,
		ClientID:       b.ClientID,
		Start:          b.StartTime,
		End:            b.EndTime,
		Status:         string(b.Status),
		Participants:   b.Participants,
		ExpiresAt:      b.ExpiresAt,
	}
}

func pathIDs(w http.ResponseWriter, r *http.Request) (practitionerID, serviceID uuid.UUID, ok bool) {
	practitionerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "id must be a valid UUID")
		return uuid.Nil, uuid.Nil, false
	}
	serviceID, err = uuid.Parse(chi.URLParam(r, "serviceID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_service_id", "serviceID must be a valid UUID")
		return uuid.Nil, uuid.Nil, false
	}
	return practitionerID, serviceID, true
}

func bookingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_booking_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func dateParam(r *http.Request, name string, fallback availability.Date) (availability.Date, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return availability.ParseDate(raw)
}

func cacheGet(ctx context.Context, cache AvailabilityCache, q availability.Query) (*availability.Availability, bool) {
	if cache == nil {
		return nil, false
	}
	return cache.Get(ctx, q)
}

func cacheSet(ctx context.Context, cache AvailabilityCache, q availability.Query, avail *availability.Availability) {
	if cache != nil {
		cache.Set(ctx, q, avail)
	}
}
