// Package repo implements the data persistence layer for domain entities,
// backed by GORM.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only
// persistence and query composition.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Constraint violations that carry domain meaning are mapped to package
//     sentinels (ErrSlotTaken, ErrAlreadyCanceled, ErrDuplicate).
//   - Other DB errors are propagated as-is.
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/domain"
)

// publicProfile restricts a preloaded user to the fields safe to expose to
// other users: no email.
func publicProfile(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "provider", "avatar_id")
}

// avatarRef restricts a preloaded avatar to its reference fields.
func avatarRef(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "path")
}

// GetUser fetches a user by ID with its avatar. Returns ErrNotFound if absent.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Preload("Avatar").
		Where("id = ?", id).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetProvider fetches a user by ID only if it is flagged as a provider.
// Returns ErrNotFound for unknown IDs and for non-provider users.
func GetProvider(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Preload("Avatar").
		Where("id = ? AND provider = ?", id, true).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListProviders returns all provider users ordered by name, with their public
// profile and avatar reference.
func ListProviders(ctx context.Context, db *gorm.DB) ([]domain.User, error) {
	var out []domain.User
	err := publicProfile(db.WithContext(ctx)).
		Preload("Avatar", avatarRef).
		Where("provider = ?", true).
		Order("name asc").
		Order("id asc").
		Find(&out).Error
	return out, err
}

// CreateUser inserts a user. The identity service owns credentials; this is
// used by seeding and tests.
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return db.WithContext(ctx).Create(u).Error
}
