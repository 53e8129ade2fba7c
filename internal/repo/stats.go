// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (weak ETags) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/domain"
)

// AppointmentsStats returns the number of clientID's appointments (active and
// canceled) and the greatest UpdatedAt among them. Cancellation bumps
// UpdatedAt, so the pair changes whenever the client's listing would.
//
// When the client has no appointments, count is 0 and maxUpdatedAt is nil.
func AppointmentsStats(ctx context.Context, db *gorm.DB, clientID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Appointment{}).Where("client_id = ?", clientID)
	return countAndLatest(q)
}

// NotificationsStats returns the number of recipientID's notifications and
// the greatest UpdatedAt among them.
func NotificationsStats(ctx context.Context, db *gorm.DB, recipientID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Notification{}).Where("recipient_id = ?", recipientID)
	return countAndLatest(q)
}

func countAndLatest(q *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	if err = q.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Session(&gorm.Session{}).Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
