package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/repo"
)

// AvailabilityChecker answers whether a provider's slot is free.
type AvailabilityChecker struct {
	DB *gorm.DB
}

// IsAvailable reports false when an active appointment holds exactly
// (providerID, date). date must already be hour-aligned; it is not truncated
// again here.
//
// The answer is advisory: two callers can both see true. The store's
// active-slot unique index decides which insert wins.
func (c *AvailabilityChecker) IsAvailable(ctx context.Context, providerID string, date time.Time) (bool, error) {
	_, err := repo.FindActiveAppointment(ctx, c.DB, providerID, date)
	if errors.Is(err, repo.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}
