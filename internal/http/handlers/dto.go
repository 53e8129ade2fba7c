package handlers

import (
	"time"

	"github.com/tbourn/go-booking-backend/internal/clock"
	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/services"
)

// CreateAppointmentRequest is the JSON payload for booking a slot.
type CreateAppointmentRequest struct {
	// ProviderID identifies the provider to book with.
	ProviderID string `json:"provider_id" example:"0b7c2f8e-8a43-4d55-9f0f-7d3c1b2a9e11"`
	// ProviderIDCamel is accepted for clients that send providerId.
	ProviderIDCamel string `json:"providerId,omitempty" swaggerignore:"true"`
	// Date is an ISO-8601 timestamp; minutes and seconds are discarded.
	Date string `json:"date" example:"2030-05-10T09:00:00Z"`
}

// AppointmentResponse is an appointment plus flags derived from the current time.
type AppointmentResponse struct {
	domain.Appointment
	// Past is true once the slot has started.
	Past bool `json:"past"`
	// Cancelable is true while the slot is at least two hours away.
	Cancelable bool `json:"cancelable"`
}

// flagGranularity divides time into buckets within which Past and Cancelable
// cannot change. Slots start on local hour boundaries and every zone offset in
// use is a multiple of 15 minutes.
const flagGranularity = 15 * time.Minute

// flagBucket numbers the flag bucket containing now.
func flagBucket(now time.Time) int64 {
	return now.Truncate(flagGranularity).Unix()
}

func toAppointmentResponse(a domain.Appointment, now time.Time) AppointmentResponse {
	return AppointmentResponse{
		Appointment: a,
		Past:        clock.IsBefore(a.Date, now),
		Cancelable:  a.CanceledAt == nil && !clock.IsBefore(clock.SubHours(a.Date, services.CancelLeadHours), now),
	}
}

func toAppointmentResponses(items []domain.Appointment, now time.Time) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(items))
	for _, a := range items {
		out = append(out, toAppointmentResponse(a, now))
	}
	return out
}
