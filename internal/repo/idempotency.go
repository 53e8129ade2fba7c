package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/domain"
)

// keyed narrows a query to one caller's (scope, key) pair.
func keyed(db *gorm.DB, userID, scope, key string) *gorm.DB {
	return db.Where("user_id = ? AND scope = ? AND key = ?", userID, scope, key)
}

// GetIdempotency looks up the stored outcome for (userID, scope, key).
// Records whose ExpiresAt is not after now are treated as absent, so a key
// can be reused once its TTL has passed even before the reaper purges it.
func GetIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	scope, key = strings.TrimSpace(scope), strings.TrimSpace(key)
	if scope == "" || key == "" {
		return nil, ErrNotFound
	}
	rec := new(domain.Idempotency)
	err := keyed(db.WithContext(ctx), userID, scope, key).
		Where("expires_at > ?", now.UTC()).
		Take(rec).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, err
	}
	return rec, nil
}

// CreateIdempotency remembers that the request (userID, scope, key) produced
// resourceID with the given HTTP status, for ttl. A second record for the same
// triple yields ErrDuplicate; the first writer wins.
func CreateIdempotency(ctx context.Context, db *gorm.DB, userID, scope, key, resourceID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	created := time.Now().UTC()
	rec := domain.Idempotency{
		ID:         uuid.NewString(),
		UserID:     userID,
		Scope:      scope,
		Key:        key,
		ResourceID: resourceID,
		Status:     status,
		CreatedAt:  created,
		ExpiresAt:  created.Add(ttl),
	}
	err := db.WithContext(ctx).Create(&rec).Error
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// PurgeExpiredIdempotency removes every record that expired at or before now
// and reports how many rows went away. The job reaper calls it on each tick.
func PurgeExpiredIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Delete(&domain.Idempotency{}, "expires_at <= ?", now.UTC())
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
