package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"tracker-api/domain"
)

// Service is the mutation orchestrator. It owns no long-lived state of its
// own: entities live in the store, room membership in the broadcaster.
type Service struct {
	store     Store
	broadcast Broadcaster
	logger    *log.Logger
	now       func() time.Time
	newID     func() string
}

func NewService(store Store, broadcast Broadcaster, logger *log.Logger) *Service {
	if store == nil {
		panic("app.NewService: store is nil")
	}
	if broadcast == nil {
		panic("app.NewService: broadcaster is nil")
	}
	if logger == nil {
		panic("app.NewService: logger is nil")
	}
	return &Service{
		store:     store,
		broadcast: broadcast,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// deliverNotifications persists each draft and pushes it to the recipient's
// personal room. Persistence precedes delivery: a client that misses the live
// push still finds the notification on its next list fetch. A failed persist
// is logged and skipped — the task mutation it decorates has already
// succeeded and is not rolled back.
func (s *Service) deliverNotifications(ctx context.Context, drafts []domain.NotificationDraft) {
	for _, draft := range drafts {
		n := domain.Notification{
			ID:        s.newID(),
			Message:   draft.Message,
			UserID:    draft.UserID,
			CreatedAt: s.now(),
		}
		saved, err := s.store.CreateNotification(ctx, n)
		if err != nil {
			s.logger.WithFields(log.Fields{
				"user_id": draft.UserID,
				"error":   err.Error(),
			}).Warn("notification persist failed, skipping delivery")
			continue
		}
		s.broadcast.Broadcast(UserRoom(draft.UserID), EventNewNotification, saved)
	}
}
