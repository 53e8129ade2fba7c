package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-booking-backend/internal/domain"
	"github.com/tbourn/go-booking-backend/internal/repo"
)

// NotificationLimit caps how many notifications List returns.
const NotificationLimit = 20

// NotificationService exposes a provider's mailbox.
type NotificationService struct {
	DB    *gorm.DB
	Users UserDirectory
}

// List returns the caller's newest notifications and the number of unread
// ones. Only providers have a mailbox.
func (s *NotificationService) List(ctx context.Context, callerID string) ([]domain.Notification, int64, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "List", trace.WithAttributes(attribute.String("user.id", callerID)))
	defer span.End()

	if err := requireProvider(ctx, s.Users, callerID); err != nil {
		return nil, 0, err
	}
	items, err := repo.ListNotifications(ctx, s.DB, callerID, NotificationLimit)
	if err != nil {
		return nil, 0, err
	}
	unread, err := repo.CountUnreadNotifications(ctx, s.DB, callerID)
	if err != nil {
		return nil, 0, err
	}
	return items, unread, nil
}

// Authorize reports whether callerID may read a mailbox at all. It returns
// ErrNotProvider for regular clients.
func (s *NotificationService) Authorize(ctx context.Context, callerID string) error {
	return requireProvider(ctx, s.Users, callerID)
}

// MarkRead flags the caller's notification as read and returns it.
func (s *NotificationService) MarkRead(ctx context.Context, callerID, id string) (*domain.Notification, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "MarkRead",
		trace.WithAttributes(
			attribute.String("user.id", callerID),
			attribute.String("notification.id", id),
		),
	)
	defer span.End()

	n, err := repo.GetNotification(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	if n.RecipientID != callerID {
		return nil, ErrNotNotificationOwner
	}
	if n.Read {
		return n, nil
	}
	return repo.MarkNotificationRead(ctx, s.DB, id)
}
