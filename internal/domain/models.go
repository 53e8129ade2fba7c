// Package domain defines the persistence models for users, appointments,
// notifications, and deferred jobs. These types are mapped with GORM and form
// the core data layer of the booking backend.
package domain

import (
	"time"
)

// File is an uploaded asset referenced by a user profile (avatar). Storage of
// the binary itself is handled elsewhere; only the reference lives here.
type File struct {
	ID        string    `json:"id"   gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Path      string    `json:"path" gorm:"type:varchar(255);not null;uniqueIndex"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName returns the database table name for File.
func (File) TableName() string { return "files" }

// User is either a client or a service provider. Credentials are managed by
// the identity service and are not stored here.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name: display name used in notifications and listings.
//   - Email: contact address for cancellation mail (unique).
//   - Provider: true when the user offers bookable slots.
//   - AvatarID: optional reference to an uploaded File.
type User struct {
	ID        string    `json:"id"                  gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"                gorm:"type:varchar(255);not null"`
	Email     string    `json:"email,omitempty"     gorm:"type:varchar(255);not null;uniqueIndex"`
	Provider  bool      `json:"provider"            gorm:"not null;default:false;index"`
	AvatarID  *string   `json:"avatar_id,omitempty" gorm:"type:char(36)"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	Avatar *File `json:"avatar,omitempty" gorm:"foreignKey:AvatarID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Appointment is a one-hour slot booked by a client with a provider.
//
// Date is always aligned to the start of an hour and never changes after
// creation. CanceledAt is nil while the appointment is active; cancellation
// sets it once and the row is retained.
//
// At most one active appointment may exist per (ProviderID, Date); the
// partial unique index ux_appointments_active_slot is created by AutoMigrate.
type Appointment struct {
	ID         string     `json:"id"          gorm:"type:char(36);primaryKey"`
	ClientID   string     `json:"client_id"   gorm:"type:char(36);not null;index:idx_client_date,priority:1"`
	ProviderID string     `json:"provider_id" gorm:"type:char(36);not null;index:idx_provider_date,priority:1"`
	Date       time.Time  `json:"date"        gorm:"not null;index:idx_client_date,priority:2;index:idx_provider_date,priority:2"`
	CanceledAt *time.Time `json:"canceled_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Client   *User `json:"client,omitempty"   gorm:"foreignKey:ClientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Provider *User `json:"provider,omitempty" gorm:"foreignKey:ProviderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

// TableName returns the database table name for Appointment.
func (Appointment) TableName() string { return "appointments" }

// Active reports whether the appointment has not been canceled.
func (a Appointment) Active() bool { return a.CanceledAt == nil }

// Notification is a message in a provider's mailbox.
type Notification struct {
	ID          string    `json:"id"        gorm:"type:char(36);primaryKey"`
	RecipientID string    `json:"user_id"   gorm:"type:char(36);not null;index:idx_recipient_created,priority:1"`
	Content     string    `json:"content"   gorm:"type:text;not null"`
	Read        bool      `json:"read"      gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at" gorm:"index:idx_recipient_created,priority:2"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }
