package service

import (
	"context"

	"github.com/farmstore/backend/internal/entity"
	"github.com/farmstore/backend/internal/repository"
)

// notificationLimit caps how many notifications a listing returns.
const notificationLimit = 50

// NotificationService exposes a user's notification feed. Records are created
// by the notifier when it consumes order events; here they are only listed
// and flipped to read.
type NotificationService struct {
	notifications repository.NotificationRepository
}

func NewNotificationService(notifications repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

// List returns the user's notifications, newest first, capped at 50.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]entity.Notification, error) {
	return s.notifications.FindByUser(ctx, userID, unreadOnly, notificationLimit)
}

// MarkRead flips one owned notification to read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	return s.notifications.MarkRead(ctx, id, userID)
}

// MarkAllRead flips every unread notification of the user.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.notifications.MarkAllRead(ctx, userID)
}
