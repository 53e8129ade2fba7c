// Package services – AppointmentService
//
// This file implements booking, listing and cancelling appointments. The
// primary write of each operation is synchronous; the provider notification
// on booking and the cancellation mail job are secondary effects handed to an
// EffectRunner, so their failure never turns a committed booking or
// cancellation into an error.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/clock"
	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/mail"
	"github.com/tbourn/go-booking-backend/internal/repo"
	"github.com/tbourn/go-booking-backend/internal/utils"
)

const (
	// PageSize is the fixed page length of appointment listings.
	PageSize = 20

	// CancelLeadHours is how long before the slot a cancellation is still
	// accepted.
	CancelLeadHours = 2
)

// Availability decides whether a slot can be booked.
type Availability interface {
	IsAvailable(ctx context.Context, providerID string, date time.Time) (bool, error)
}

// Enqueuer records deferred jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind string, payload any) (*domain.Job, error)
}

// AppointmentService orchestrates the appointment lifecycle.
type AppointmentService struct {
	DB           *gorm.DB
	Users        UserDirectory
	Availability Availability
	Jobs         Enqueuer
	Effects      EffectRunner
	Clock        clock.Clock

	// Location is the business time zone used for hour truncation and for
	// rendering dates in notifications.
	Location *time.Location
	// Locale selects the notification language.
	Locale language.Tag
}

// NewAppointmentService wires an AppointmentService with DB-backed
// collaborators, the system clock, UTC and English.
func NewAppointmentService(db *gorm.DB, jobs Enqueuer, effects EffectRunner) *AppointmentService {
	return &AppointmentService{
		DB:           db,
		Users:        DBDirectory{DB: db},
		Availability: &AvailabilityChecker{DB: db},
		Jobs:         jobs,
		Effects:      effects,
		Clock:        clock.System{},
		Location:     time.UTC,
		Locale:       language.English,
	}
}

// Create books providerID's slot containing requestedDate for clientID.
//
// requestedDate is an ISO-8601 timestamp; it is truncated to the start of its
// hour in the business time zone. The slot must be strictly in the future
// and free. On success the provider is notified asynchronously.
func (s *AppointmentService) Create(ctx context.Context, clientID, providerID, requestedDate string) (*domain.Appointment, error) {
	tr := otel.Tracer("services/AppointmentService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("user.id", clientID),
			attribute.String("provider.id", providerID),
		),
	)
	defer span.End()

	provider, err := s.Users.GetProvider(ctx, providerID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}
	if provider.ID == clientID {
		return nil, ErrSelfBooking
	}

	requested, err := clock.ParseISO(requestedDate, s.Location)
	if err != nil {
		return nil, ErrInvalidDate
	}
	date := clock.StartOfHour(requested, s.Location)
	span.SetAttributes(attribute.String("appointment.date", date.Format(time.RFC3339)))

	now := s.Clock.Now()
	if !date.After(now) {
		return nil, ErrPastDate
	}

	free, err := s.Availability.IsAvailable(ctx, providerID, date)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, ErrSlotUnavailable
	}

	a, err := repo.CreateAppointment(ctx, s.DB, clientID, providerID, date)
	if err != nil {
		if errors.Is(err, repo.ErrSlotTaken) {
			return nil, ErrSlotUnavailable
		}
		return nil, err
	}
	appointmentsTotal.WithLabelValues("created").Inc()

	s.Effects.Go(ctx, "booking_notification", func(ctx context.Context) error {
		client, err := s.Users.GetUser(ctx, clientID)
		if err != nil {
			return fmt.Errorf("resolve client %s: %w", clientID, err)
		}
		_, err = repo.CreateNotification(ctx, s.DB, providerID, s.bookingMessage(client.Name, date), now)
		return err
	})

	return a, nil
}

// bookingMessage renders the provider notification in the configured locale.
func (s *AppointmentService) bookingMessage(clientName string, date time.Time) string {
	tag := clock.MatchLocale(s.Locale)
	when := clock.FormatBookingDate(date, s.Location, tag)
	if tag == language.BrazilianPortuguese {
		return fmt.Sprintf("Novo agendamento de %s para o %s", clientName, when)
	}
	return fmt.Sprintf("New booking from %s for %s", clientName, when)
}

// ListPage returns the given 1-based page of clientID's active appointments,
// PageSize per page, and the total number of active appointments.
func (s *AppointmentService) ListPage(ctx context.Context, clientID string, page int) ([]domain.Appointment, int64, error) {
	tr := otel.Tracer("services/AppointmentService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", clientID),
			attribute.Int("page", page),
		),
	)
	defer span.End()

	total, err := repo.CountClientAppointments(ctx, s.DB, clientID)
	if err != nil {
		return nil, 0, err
	}
	offset := utils.Offset(page, PageSize)
	if int64(offset) >= total {
		return []domain.Appointment{}, total, nil
	}
	items, err := repo.ListClientAppointmentsPage(ctx, s.DB, clientID, offset, PageSize)
	return items, total, err
}

// Cancel cancels clientID's appointment. It must be at least two hours away:
// exactly two hours before the slot is still accepted. The cancellation mail
// job is enqueued asynchronously once the cancellation is durable.
func (s *AppointmentService) Cancel(ctx context.Context, clientID, appointmentID string) (*domain.Appointment, error) {
	tr := otel.Tracer("services/AppointmentService")
	ctx, span := tr.Start(ctx, "Cancel",
		trace.WithAttributes(
			attribute.String("user.id", clientID),
			attribute.String("appointment.id", appointmentID),
		),
	)
	defer span.End()

	a, err := repo.GetAppointment(ctx, s.DB, appointmentID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	if a.ClientID != clientID {
		return nil, ErrNotOwner
	}
	if a.CanceledAt != nil {
		return nil, ErrAlreadyCanceled
	}

	now := s.Clock.Now()
	if clock.IsBefore(clock.SubHours(a.Date, CancelLeadHours), now) {
		return nil, ErrCancelWindowPassed
	}

	if err := repo.CancelAppointment(ctx, s.DB, a.ID, now); err != nil {
		switch {
		case errors.Is(err, repo.ErrAlreadyCanceled):
			return nil, ErrAlreadyCanceled
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	canceledAt := now.UTC()
	a.CanceledAt = &canceledAt
	appointmentsTotal.WithLabelValues("canceled").Inc()

	payload, err := mail.NewCancellationPayload(a)
	if err != nil {
		return nil, err
	}
	s.Effects.Go(ctx, "cancellation_mail", func(ctx context.Context) error {
		_, err := s.Jobs.Enqueue(ctx, mail.KindCancellation, payload)
		return err
	})

	return a, nil
}
