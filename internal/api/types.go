package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vitalbook/scheduling/internal/availability"
)

type SlotResponse struct {
	Date              string    `json:"date"`
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	RemainingCapacity int       `json:"remaining_capacity"`
}

type AvailabilityResponse struct {
	PractitionerID uuid.UUID      `json:"practitioner_id"`
	ServiceID      uuid.UUID      `json:"service_id"`
	Timezone       string         `json:"timezone"`
	Start          string         `json:"start"`
	End            string         `json:"end"`
	Slots          []SlotResponse `json:"slots"`
}

type NextAvailableResponse struct {
	PractitionerID uuid.UUID     `json:"practitioner_id"`
	ServiceID      uuid.UUID     `json:"service_id"`
	Timezone       string        `json:"timezone"`
	Slot           *SlotResponse `json:"slot"`
}

type CreateBookingRequest struct {
	PractitionerID     string    `json:"practitioner_id"`
	ServiceID          string    `json:"service_id"`
	ClientID           string    `json:"client_id"`
	Start              time.Time `json:"start"`
	Participants       int       `json:"participants,omitempty"`
	GranularityMinutes int       `json:"granularity_minutes,omitempty"`
}

type BookingResponse struct {
	ID             uuid.UUID  `json:"id"`
	PractitionerID uuid.UUID  `json:"practitioner_id"`
	ServiceID      uuid.UUID  `json:"service_id"`
	ClientID       uuid.UUID  `json:"client_id"`
	Start          time.Time  `json:"start"`
	End            time.Time  `json:"end"`
	Status         string     `json:"status"`
	Participants   int        `json:"participants"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toSlotResponse(s availability.Slot) SlotResponse {
	return SlotResponse{
		Date:              s.Date.String(),
		Start:             s.Start,
		End:               s.End,
		RemainingCapacity: s.RemainingCapacity,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
