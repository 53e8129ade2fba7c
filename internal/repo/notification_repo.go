package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/domain"
)

// CreateNotification appends an unread notification to recipientID's mailbox,
// stamped with at. A zero at means the current time.
func CreateNotification(ctx context.Context, db *gorm.DB, recipientID, content string, at time.Time) (*domain.Notification, error) {
	if at.IsZero() {
		at = time.Now()
	}
	n := &domain.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		Content:     content,
		CreatedAt:   at.UTC(),
		UpdatedAt:   at.UTC(),
	}
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// ListNotifications returns up to limit notifications for recipientID,
// newest first.
func ListNotifications(ctx context.Context, db *gorm.DB, recipientID string, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	err := db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at desc").
		Order("id desc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountUnreadNotifications returns how many of recipientID's notifications are unread.
func CountUnreadNotifications(ctx context.Context, db *gorm.DB, recipientID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Count(&n).Error
	return n, err
}

// GetNotification fetches a notification by ID or returns ErrNotFound.
func GetNotification(ctx context.Context, db *gorm.DB, id string) (*domain.Notification, error) {
	var n domain.Notification
	if err := db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkNotificationRead flips read to true and returns the updated record.
// Marking an already-read notification is a no-op that still succeeds.
func MarkNotificationRead(ctx context.Context, db *gorm.DB, id string) (*domain.Notification, error) {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ?", id).
		Update("read", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return GetNotification(ctx, db, id)
}
