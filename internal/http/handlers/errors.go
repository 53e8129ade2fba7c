// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP responses
// (via the `fail()` helper in this package) and the single translation from service
// errors to status and code. These codes provide clients with a stable,
// machine-readable error taxonomy that supplements human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case.
//   - Generic codes (e.g., bad_request, unauthorized, not_found) mirror common HTTP
//     status semantics to aid interoperability.
//   - Domain codes name the booking rule that rejected the request.
//
// Status mapping:
//   - validation and booking rule violations   -> 400
//   - authorization (not owner, not provider)  -> 401
//   - unknown appointment or notification      -> 404
//   - anything else                            -> 500

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-booking-backend/internal/services"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeNotFound     = "not_found"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeProviderNotFound    = "provider_not_found"
	ErrCodeSelfBooking         = "self_booking"
	ErrCodeInvalidDate         = "invalid_date"
	ErrCodePastDate            = "past_date"
	ErrCodeSlotUnavailable     = "slot_unavailable"
	ErrCodeAlreadyCanceled     = "already_canceled"
	ErrCodeCancelWindowPassed  = "cancel_window_passed"
	ErrCodeNotOwner            = "not_owner"
	ErrCodeNotProvider         = "not_provider"
	ErrCodeAppointmentNotFound = "appointment_not_found"
)

// serviceCodes names each service sentinel.
var serviceCodes = map[error]string{
	services.ErrProviderNotFound:     ErrCodeProviderNotFound,
	services.ErrSelfBooking:          ErrCodeSelfBooking,
	services.ErrInvalidDate:          ErrCodeInvalidDate,
	services.ErrPastDate:             ErrCodePastDate,
	services.ErrSlotUnavailable:      ErrCodeSlotUnavailable,
	services.ErrAlreadyCanceled:      ErrCodeAlreadyCanceled,
	services.ErrCancelWindowPassed:   ErrCodeCancelWindowPassed,
	services.ErrNotOwner:             ErrCodeNotOwner,
	services.ErrNotProvider:          ErrCodeNotProvider,
	services.ErrNotNotificationOwner: ErrCodeNotOwner,
	services.ErrAppointmentNotFound:  ErrCodeAppointmentNotFound,
	services.ErrNotificationNotFound: ErrCodeNotFound,
}

// writeServiceError translates an error returned by a service into the
// error envelope. Unknown errors become 500 without leaking their text.
func writeServiceError(c *gin.Context, err error) {
	var status int
	switch {
	case services.IsValidation(err):
		status = http.StatusBadRequest
	case services.IsAuthorization(err):
		status = http.StatusUnauthorized
	case services.IsNotFound(err):
		status = http.StatusNotFound
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
		return
	}

	code := ErrCodeBadRequest
	for sentinel, name := range serviceCodes {
		if errors.Is(err, sentinel) {
			code = name
			break
		}
	}
	fail(c, status, code, err.Error())
}
