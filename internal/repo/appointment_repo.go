package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/domain"
)

// CreateAppointment inserts an active appointment for (clientID, providerID, date).
// date must already be hour-aligned and in UTC.
//
// The active-slot unique index is the authority on double booking: when a
// concurrent request already holds the slot the insert fails and
// ErrSlotTaken is returned.
func CreateAppointment(ctx context.Context, db *gorm.DB, clientID, providerID string, date time.Time) (*domain.Appointment, error) {
	a := &domain.Appointment{
		ID:         uuid.NewString(),
		ClientID:   clientID,
		ProviderID: providerID,
		Date:       date.UTC(),
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return a, nil
}

// FindActiveAppointment returns the active appointment holding (providerID, date),
// or ErrNotFound when the slot is free.
func FindActiveAppointment(ctx context.Context, db *gorm.DB, providerID string, date time.Time) (*domain.Appointment, error) {
	var a domain.Appointment
	err := db.WithContext(ctx).
		Where("provider_id = ? AND date = ? AND canceled_at IS NULL", providerID, date.UTC()).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAppointment fetches an appointment by ID, canceled or not, with full
// client and provider records (including emails, for mail payloads).
func GetAppointment(ctx context.Context, db *gorm.DB, id string) (*domain.Appointment, error) {
	var a domain.Appointment
	err := db.WithContext(ctx).
		Preload("Client").
		Preload("Provider").
		Where("id = ?", id).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CountClientAppointments returns the number of active appointments booked by clientID.
func CountClientAppointments(ctx context.Context, db *gorm.DB, clientID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Appointment{}).
		Where("client_id = ? AND canceled_at IS NULL", clientID).
		Count(&total).Error
	return total, err
}

// ListClientAppointmentsPage returns a page of clientID's active appointments
// ordered by date ascending (id breaks ties), each with the provider's public
// profile and avatar reference.
func ListClientAppointmentsPage(ctx context.Context, db *gorm.DB, clientID string, offset, limit int) ([]domain.Appointment, error) {
	var out []domain.Appointment
	err := db.WithContext(ctx).
		Preload("Provider", publicProfile).
		Preload("Provider.Avatar", avatarRef).
		Where("client_id = ? AND canceled_at IS NULL", clientID).
		Order("date asc").
		Order("id asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListProviderAppointmentsBetween returns providerID's active appointments with
// from <= date <= to, ordered by date, each with the client's public profile.
func ListProviderAppointmentsBetween(ctx context.Context, db *gorm.DB, providerID string, from, to time.Time) ([]domain.Appointment, error) {
	var out []domain.Appointment
	err := db.WithContext(ctx).
		Preload("Client", publicProfile).
		Preload("Client.Avatar", avatarRef).
		Where("provider_id = ? AND canceled_at IS NULL AND date >= ? AND date <= ?", providerID, from.UTC(), to.UTC()).
		Order("date asc").
		Order("id asc").
		Find(&out).Error
	return out, err
}

// CancelAppointment sets canceled_at on an active appointment. The update is
// conditional, so of two racing cancellations only one succeeds.
//
// Returns ErrNotFound when id is unknown and ErrAlreadyCanceled when the row
// exists but is no longer active.
func CancelAppointment(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Appointment{}).
		Where("id = ? AND canceled_at IS NULL", id).
		Update("canceled_at", at.UTC())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var n int64
	if err := db.WithContext(ctx).Model(&domain.Appointment{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrAlreadyCanceled
}
