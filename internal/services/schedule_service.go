package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/clock"
	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/repo"
)

// ScheduleService answers a provider's day view.
type ScheduleService struct {
	DB       *gorm.DB
	Users    UserDirectory
	Clock    clock.Clock
	Location *time.Location
}

// Day returns providerID's active appointments between the start and the end
// of the day containing date, in the business time zone. An empty date means
// today.
func (s *ScheduleService) Day(ctx context.Context, providerID, date string) ([]domain.Appointment, error) {
	tr := otel.Tracer("services/ScheduleService")
	ctx, span := tr.Start(ctx, "Day",
		trace.WithAttributes(
			attribute.String("user.id", providerID),
			attribute.String("date", date),
		),
	)
	defer span.End()

	if err := requireProvider(ctx, s.Users, providerID); err != nil {
		return nil, err
	}

	day := s.Clock.Now()
	if strings.TrimSpace(date) != "" {
		t, err := clock.ParseISO(date, s.Location)
		if err != nil {
			return nil, ErrInvalidDate
		}
		day = t
	}

	from := clock.StartOfDay(day, s.Location)
	to := clock.EndOfDay(day, s.Location)
	return repo.ListProviderAppointmentsBetween(ctx, s.DB, providerID, from, to)
}

// requireProvider returns ErrNotProvider unless userID is a provider.
func requireProvider(ctx context.Context, users UserDirectory, userID string) error {
	_, err := users.GetProvider(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotProvider
	}
	return err
}
