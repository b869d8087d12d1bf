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

type commentDoc struct {
	ID             string    `bson:"_id"`
	Comment        string    `bson:"comment"`
	TaskID         string    `bson:"taskId"`
	UserID         string    `bson:"userId"`
	OrganizationID string    `bson:"organizationId"`
	CreatedAt      time.Time `bson:"createdAt"`
}

func commentToDoc(c domain.Comment) commentDoc {
	return commentDoc{
		ID:             c.ID,
		Comment:        c.Comment,
		TaskID:         c.TaskID,
		UserID:         c.UserID,
		OrganizationID: c.OrganizationID,
		CreatedAt:      c.CreatedAt,
	}
}

func (d commentDoc) toComment() domain.Comment {
	return domain.Comment{
		ID:             d.ID,
		Comment:        d.Comment,
		TaskID:         d.TaskID,
		UserID:         d.UserID,
		OrganizationID: d.OrganizationID,
		CreatedAt:      d.CreatedAt,
	}
}

func (s *Store) comments() *mongo.Collection {
	return s.db.Collection(colComments)
}

func (s *Store) CreateComment(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
	if _, err := s.comments().InsertOne(ctx, commentToDoc(comment)); err != nil {
		return domain.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return comment, nil
}

func (s *Store) CommentByID(ctx context.Context, id string) (domain.Comment, error) {
	var doc commentDoc
	err := s.comments().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Comment{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Comment{}, fmt.Errorf("find comment: %w", err)
	}
	return doc.toComment(), nil
}

func (s *Store) CommentsByTask(ctx context.Context, taskID string) ([]domain.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := s.comments().Find(ctx, bson.M{"taskId": taskID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find task comments: %w", err)
	}
	defer cursor.Close(ctx)

	var out []domain.Comment
	for cursor.Next(ctx) {
		var doc commentDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode comment: %w", err)
		}
		out = append(out, doc.toComment())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	res, err := s.comments().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteCommentsByTask(ctx context.Context, taskID string) error {
	if _, err := s.comments().DeleteMany(ctx, bson.M{"taskId": taskID}); err != nil {
		return fmt.Errorf("delete task comments: %w", err)
	}
	return nil
}
