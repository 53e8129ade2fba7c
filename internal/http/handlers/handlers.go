// Package handlers exposes the booking API over HTTP.
//
// Handlers are transport-thin: they read the authenticated caller, validate
// request shape, call an application service, and translate the result into
// JSON (including conditional and replayed responses). Booking rules live in
// the services package.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/clock"
	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/http/middleware"
	"github.com/tbourn/go-booking-backend/internal/repo"
	"github.com/tbourn/go-booking-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// AppointmentService books, lists and cancels a client's appointments.
type AppointmentService interface {
	Create(ctx context.Context, clientID, providerID, date string) (*domain.Appointment, error)
	ListPage(ctx context.Context, clientID string, page int) ([]domain.Appointment, int64, error)
	Cancel(ctx context.Context, clientID, appointmentID string) (*domain.Appointment, error)
}

// ScheduleService answers a provider's day view.
type ScheduleService interface {
	Day(ctx context.Context, providerID, date string) ([]domain.Appointment, error)
}

// NotificationService exposes a provider's mailbox.
type NotificationService interface {
	List(ctx context.Context, callerID string) ([]domain.Notification, int64, error)
	MarkRead(ctx context.Context, callerID, id string) (*domain.Notification, error)
}

// ProviderService lists bookable providers.
type ProviderService interface {
	List(ctx context.Context) ([]domain.User, error)
}

//
// Handler wiring
//

// Handlers groups the booking endpoints. It depends on service interfaces so
// tests can substitute fakes.
type Handlers struct {
	appts     AppointmentService
	schedule  ScheduleService
	notes     NotificationService
	providers ProviderService

	clock   clock.Clock
	idemTTL time.Duration
}

// New constructs Handlers bound to the given services.
func New(appts AppointmentService, schedule ScheduleService, notes NotificationService, providers ProviderService) *Handlers {
	return &Handlers{
		appts:     appts,
		schedule:  schedule,
		notes:     notes,
		providers: providers,
		clock:     clock.System{},
		idemTTL:   24 * time.Hour,
	}
}

// WithClock sets the clock used for the past/cancelable flags.
func (h *Handlers) WithClock(c clock.Clock) *Handlers {
	h.clock = c
	return h
}

// WithIdempotencyTTL sets how long a stored Idempotency-Key result is replayed.
func (h *Handlers) WithIdempotencyTTL(ttl time.Duration) *Handlers {
	if ttl > 0 {
		h.idemTTL = ttl
	}
	return h
}

// userID returns the authenticated caller. Routes are mounted behind
// middleware.Authenticate; the 401 here covers handlers reached without it.
func userID(c *gin.Context) (string, bool) {
	uid := middleware.UserID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required")
		return "", false
	}
	return uid, true
}

// appointmentDB returns the store behind the appointment service when it is
// the concrete implementation, for ETag and idempotency bookkeeping.
func (h *Handlers) appointmentDB() *gorm.DB {
	if svc, ok := h.appts.(*services.AppointmentService); ok {
		return svc.DB
	}
	return nil
}

// IdempotencyLookup adapts the idempotency table for
// middleware.IdempotencyValidator.
func IdempotencyLookup(db *gorm.DB) middleware.IdempotencyLookup {
	return func(ctx context.Context, userID, scope, key string, now time.Time) (*middleware.Replay, error) {
		rec, err := repo.GetIdempotency(ctx, db, userID, scope, key, now)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &middleware.Replay{ResourceID: rec.ResourceID, Status: rec.Status}, nil
	}
}
