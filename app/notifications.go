package app

import (
	"context"
	"fmt"

	"tracker-api/domain"
)

// Notifications lists the caller's notifications newest first.
func (s *Service) Notifications(ctx context.Context, caller domain.Caller) ([]domain.Notification, error) {
	out, err := s.store.NotificationsByUser(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return out, nil
}

// MarkNotificationRead flags one of the caller's notifications as read.
func (s *Service) MarkNotificationRead(ctx context.Context, caller domain.Caller, id string) (domain.Notification, error) {
	updated, err := s.store.UpdateNotification(ctx, id, func(n *domain.Notification) error {
		if n.UserID != caller.ID {
			return domain.ErrForbidden
		}
		n.IsRead = true
		return nil
	})
	if err != nil {
		if isRejection(err) {
			return domain.Notification{}, err
		}
		return domain.Notification{}, fmt.Errorf("update notification: %w", err)
	}
	return updated, nil
}
