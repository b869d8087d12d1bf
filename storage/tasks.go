package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tracker-api/app"
	"tracker-api/domain"
)

type taskDoc struct {
	ID             string    `bson:"_id"`
	Rev            int64     `bson:"rev"`
	Title          string    `bson:"title"`
	Description    string    `bson:"description"`
	ProjectID      string    `bson:"projectId"`
	OrganizationID string    `bson:"organizationId"`
	CreatedBy      string    `bson:"createdBy"`
	AssignedTo     []string  `bson:"assignedTo"`
	Status         string    `bson:"status"`
	Priority       string    `bson:"priority"`
	DueDate        time.Time `bson:"dueDate"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

func taskToDoc(t domain.Task, rev int64) taskDoc {
	return taskDoc{
		ID:             t.ID,
		Rev:            rev,
		Title:          t.Title,
		Description:    t.Description,
		ProjectID:      t.ProjectID,
		OrganizationID: t.OrganizationID,
		CreatedBy:      t.CreatedBy,
		AssignedTo:     t.AssignedTo,
		Status:         string(t.Status),
		Priority:       string(t.Priority),
		DueDate:        t.DueDate,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

func (d taskDoc) toTask() domain.Task {
	return domain.Task{
		ID:             d.ID,
		Title:          d.Title,
		Description:    d.Description,
		ProjectID:      d.ProjectID,
		OrganizationID: d.OrganizationID,
		CreatedBy:      d.CreatedBy,
		AssignedTo:     d.AssignedTo,
		Status:         domain.Status(d.Status),
		Priority:       domain.Priority(d.Priority),
		DueDate:        d.DueDate,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func (s *Store) tasks() *mongo.Collection {
	return s.db.Collection(colTasks)
}

func (s *Store) CreateTask(ctx context.Context, task domain.Task) (domain.Task, error) {
	if _, err := s.tasks().InsertOne(ctx, taskToDoc(task, 1)); err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

func (s *Store) TaskByID(ctx context.Context, id string) (domain.Task, error) {
	var doc taskDoc
	err := s.tasks().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Task{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("find task: %w", err)
	}
	return doc.toTask(), nil
}

func (s *Store) TasksByProject(ctx context.Context, projectID string) ([]domain.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := s.tasks().Find(ctx, bson.M{"projectId": projectID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find project tasks: %w", err)
	}
	return decodeTasks(ctx, cursor)
}

// taskFilterQuery translates an app.TaskFilter into a mongo filter scoped to
// one organization. The search term is matched literally, case insensitive.
func taskFilterQuery(orgID string, filter app.TaskFilter) bson.M {
	query := bson.M{"organizationId": orgID}
	if filter.Search != "" {
		query["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.Priority != "" {
		query["priority"] = string(filter.Priority)
	}
	if filter.AssignedTo != "" {
		query["assignedTo"] = filter.AssignedTo
	}
	return query
}

func (s *Store) TasksByOrganization(ctx context.Context, orgID string, filter app.TaskFilter) ([]domain.Task, int64, error) {
	query := taskFilterQuery(orgID, filter)

	total, err := s.tasks().CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((filter.Page - 1) * filter.Limit)).
		SetLimit(int64(filter.Limit))
	cursor, err := s.tasks().Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find tasks: %w", err)
	}
	tasks, err := decodeTasks(ctx, cursor)
	if err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, mutate func(*domain.Task) error) (domain.Task, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		var doc taskDoc
		err := s.tasks().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Task{}, domain.ErrNotFound
		}
		if err != nil {
			return domain.Task{}, fmt.Errorf("find task: %w", err)
		}

		task := doc.toTask()
		if err := mutate(&task); err != nil {
			return domain.Task{}, err
		}

		res, err := s.tasks().ReplaceOne(ctx,
			bson.M{"_id": id, "rev": doc.Rev},
			taskToDoc(task, doc.Rev+1),
		)
		if err != nil {
			return domain.Task{}, fmt.Errorf("replace task: %w", err)
		}
		if res.MatchedCount == 1 {
			return task, nil
		}
		// rev moved underneath us, reload and retry
	}
	return domain.Task{}, errTooMuchContention
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.tasks().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func decodeTasks(ctx context.Context, cursor *mongo.Cursor) ([]domain.Task, error) {
	defer cursor.Close(ctx)
	var out []domain.Task
	for cursor.Next(ctx) {
		var doc taskDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		out = append(out, doc.toTask())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}
