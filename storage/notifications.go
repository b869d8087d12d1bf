package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tracker-api/domain"
)

type notificationDoc struct {
	ID        string    `bson:"_id"`
	Rev       int64     `bson:"rev"`
	Message   string    `bson:"message"`
	UserID    string    `bson:"userId"`
	IsRead    bool      `bson:"isRead"`
	CreatedAt time.Time `bson:"createdAt"`
}

func notificationToDoc(n domain.Notification, rev int64) notificationDoc {
	return notificationDoc{
		ID:        n.ID,
		Rev:       rev,
		Message:   n.Message,
		UserID:    n.UserID,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func (d notificationDoc) toNotification() domain.Notification {
	return domain.Notification{
		ID:        d.ID,
		Message:   d.Message,
		UserID:    d.UserID,
		IsRead:    d.IsRead,
		CreatedAt: d.CreatedAt,
	}
}

func (s *Store) notifications() *mongo.Collection {
	return s.db.Collection(colNotifications)
}

func (s *Store) CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	if _, err := s.notifications().InsertOne(ctx, notificationToDoc(n, 1)); err != nil {
		return domain.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

func (s *Store) NotificationsByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.notifications().Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find user notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var out []domain.Notification
	for cursor.Next(ctx) {
		var doc notificationDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		out = append(out, doc.toNotification())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateNotification(ctx context.Context, id string, mutate func(*domain.Notification) error) (domain.Notification, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		var doc notificationDoc
		err := s.notifications().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Notification{}, domain.ErrNotFound
		}
		if err != nil {
			return domain.Notification{}, fmt.Errorf("find notification: %w", err)
		}

		n := doc.toNotification()
		if err := mutate(&n); err != nil {
			return domain.Notification{}, err
		}

		res, err := s.notifications().ReplaceOne(ctx,
			bson.M{"_id": id, "rev": doc.Rev},
			notificationToDoc(n, doc.Rev+1),
		)
		if err != nil {
			return domain.Notification{}, fmt.Errorf("replace notification: %w", err)
		}
		if res.MatchedCount == 1 {
			return n, nil
		}
	}
	return domain.Notification{}, errTooMuchContention
}
