// Package services defines the business logic for booking, cancelling and
// listing appointments, the provider's day schedule, and provider
// notifications. This file centralizes service-level error values so that
// they can be consistently returned by service methods and checked by callers.
//
// Errors fall into three categories that handlers translate into HTTP status
// codes: domain/validation failures, authorization failures and missing
// resources. The Is* helpers report the category of an error.
package services

import "errors"

// Booking errors.
var (
	// ErrProviderNotFound is returned when the requested provider id does not
	// resolve to a user flagged as a provider.
	ErrProviderNotFound = errors.New("you can only create appointments with providers")

	// ErrSelfBooking is returned when a provider tries to book their own slot.
	ErrSelfBooking = errors.New("you cannot book an appointment with yourself")

	// ErrInvalidDate is returned for timestamps that cannot be parsed.
	ErrInvalidDate = errors.New("invalid date")

	// ErrPastDate is returned when the hour-aligned slot is not in the future.
	ErrPastDate = errors.New("past dates are not permitted")

	// ErrSlotUnavailable is returned when the provider already has an active
	// appointment at the requested hour.
	ErrSlotUnavailable = errors.New("appointment date is not available")
)

// Cancellation errors.
var (
	// ErrAppointmentNotFound indicates that the appointment id is unknown.
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrNotOwner is returned when the caller is not the appointment's client.
	ErrNotOwner = errors.New("you don't have permission to cancel this appointment")

	// ErrAlreadyCanceled is returned when cancelling an appointment twice.
	ErrAlreadyCanceled = errors.New("appointment already canceled")

	// ErrCancelWindowPassed is returned when fewer than two hours remain
	// before the appointment.
	ErrCancelWindowPassed = errors.New("you can only cancel appointments 2 hours in advance")
)

// Provider-only errors.
var (
	// ErrNotProvider is returned when a provider-only operation is called by a
	// regular client.
	ErrNotProvider = errors.New("only providers can access this resource")

	// ErrNotificationNotFound indicates that the notification id is unknown.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrNotNotificationOwner is returned when marking another user's
	// notification as read.
	ErrNotNotificationOwner = errors.New("you don't have permission to update this notification")
)

// IsValidation reports whether err is a domain or validation failure.
func IsValidation(err error) bool {
	return isAny(err,
		ErrProviderNotFound, ErrSelfBooking, ErrInvalidDate, ErrPastDate,
		ErrSlotUnavailable, ErrAlreadyCanceled, ErrCancelWindowPassed,
	)
}

// IsAuthorization reports whether err means the caller may not perform the
// operation.
func IsAuthorization(err error) bool {
	return isAny(err, ErrNotOwner, ErrNotProvider, ErrNotNotificationOwner)
}

// IsNotFound reports whether err means the target resource does not exist.
func IsNotFound(err error) bool {
	return isAny(err, ErrAppointmentNotFound, ErrNotificationNotFound)
}

func isAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
