package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

var (
	// ErrDuplicate indicates that an idempotency record already exists for the
	// given (user_id, scope, key) tuple.
	ErrDuplicate = errors.New("duplicate")

	// ErrSlotTaken is returned by CreateAppointment when another active
	// appointment already holds the (provider, date) slot.
	ErrSlotTaken = errors.New("slot already booked")

	// ErrAlreadyCanceled is returned by CancelAppointment when the row exists
	// but its canceled_at is already set.
	ErrAlreadyCanceled = errors.New("appointment already canceled")
)

// isUniqueViolation detects unique-constraint failures across drivers.
// TranslateError covers most cases; glebarez/sqlite and pgx may still
// surface plain-text errors depending on the statement path.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key") ||
		strings.Contains(low, "sqlstate 23505")
}
