package service

import (
	"context"
	"strconv"

	"charchat-client/internal/models"
)

// NotificationService - HTTP доступ к уведомлениям.
// Канал notifications использует его как fallback, когда сокет недоступен.
type NotificationService struct {
	api APIClient
}

func NewNotificationService(api APIClient) *NotificationService {
	return &NotificationService{api: api}
}

// List - GET /notifications.
func (s *NotificationService) List(ctx context.Context, params models.ListParams, unreadOnly bool) (*models.Page[models.Notification], error) {
	q := params.Query()
	if unreadOnly {
		q.Set("unreadOnly", strconv.FormatBool(true))
	}
	var page models.Page[models.Notification]
	if err := s.api.Get(ctx, "/notifications", q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// UnreadCount - GET /notifications/unread-count.
func (s *NotificationService) UnreadCount(ctx context.Context) (int, error) {
	var uc models.UnreadCount
	if err := s.api.Get(ctx, "/notifications/unread-count", nil, &uc); err != nil {
		return 0, err
	}
	return uc.Count, nil
}

// MarkRead - PATCH /notifications/:id/read.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID string) error {
	id, err := requireID("notification id", notificationID)
	if err != nil {
		return err
	}
	return s.api.Patch(ctx, "/notifications/"+id+"/read", nil, nil)
}

// MarkAllRead - PATCH /notifications/read-all.
func (s *NotificationService) MarkAllRead(ctx context.Context) (int, error) {
	var res models.MarkAllResult
	if err := s.api.Patch(ctx, "/notifications/read-all", nil, &res); err != nil {
		return 0, err
	}
	return res.Updated, nil
}

// Delete - DELETE /notifications/:id.
func (s *NotificationService) Delete(ctx context.Context, notificationID string) error {
	id, err := requireID("notification id", notificationID)
	if err != nil {
		return err
	}
	return s.api.Delete(ctx, "/notifications/"+id, nil)
}
