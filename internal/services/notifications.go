package services

import (
	"context"

	"anitrack/internal/models"
	"anitrack/internal/repository"
)

const defaultNotificationLimit = 50

type NotificationService struct {
	notifications repository.NotificationRepository
}

func NewNotificationService(repos repository.Repositories) *NotificationService {
	return &NotificationService{notifications: repos.Notifications}
}

func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	if limit <= 0 || limit > defaultNotificationLimit {
		limit = defaultNotificationLimit
	}
	list, err := s.notifications.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*models.Notification{}
	}
	return list, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	return s.notifications.MarkRead(ctx, id, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return s.notifications.MarkAllRead(ctx, userID)
}
