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

type projectDoc struct {
	ID             string    `bson:"_id"`
	Rev            int64     `bson:"rev"`
	Name           string    `bson:"name"`
	Description    string    `bson:"description"`
	StartDate      time.Time `bson:"startDate"`
	EndDate        time.Time `bson:"endDate"`
	OrganizationID string    `bson:"organizationId"`
	CreatedBy      string    `bson:"createdBy"`
	TaskIDs        []string  `bson:"tasks"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

func projectToDoc(p domain.Project, rev int64) projectDoc {
	return projectDoc{
		ID:             p.ID,
		Rev:            rev,
		Name:           p.Name,
		Description:    p.Description,
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		OrganizationID: p.OrganizationID,
		CreatedBy:      p.CreatedBy,
		TaskIDs:        p.TaskIDs,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

func (d projectDoc) toProject() domain.Project {
	return domain.Project{
		ID:             d.ID,
		Name:           d.Name,
		Description:    d.Description,
		StartDate:      d.StartDate,
		EndDate:        d.EndDate,
		OrganizationID: d.OrganizationID,
		CreatedBy:      d.CreatedBy,
		TaskIDs:        d.TaskIDs,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func (s *Store) projects() *mongo.Collection {
	return s.db.Collection(colProjects)
}

func (s *Store) CreateProject(ctx context.Context, project domain.Project) (domain.Project, error) {
	if _, err := s.projects().InsertOne(ctx, projectToDoc(project, 1)); err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return project, nil
}

func (s *Store) ProjectByID(ctx context.Context, id string) (domain.Project, error) {
	var doc projectDoc
	err := s.projects().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Project{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Project{}, fmt.Errorf("find project: %w", err)
	}
	return doc.toProject(), nil
}

func (s *Store) ProjectsByOrganization(ctx context.Context, orgID string) ([]domain.Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := s.projects().Find(ctx, bson.M{"organizationId": orgID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find organization projects: %w", err)
	}
	defer cursor.Close(ctx)

	var out []domain.Project
	for cursor.Next(ctx) {
		var doc projectDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode project: %w", err)
		}
		out = append(out, doc.toProject())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateProject(ctx context.Context, id string, mutate func(*domain.Project) error) (domain.Project, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		var doc projectDoc
		err := s.projects().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.Project{}, domain.ErrNotFound
		}
		if err != nil {
			return domain.Project{}, fmt.Errorf("find project: %w", err)
		}

		project := doc.toProject()
		if err := mutate(&project); err != nil {
			return domain.Project{}, err
		}

		res, err := s.projects().ReplaceOne(ctx,
			bson.M{"_id": id, "rev": doc.Rev},
			projectToDoc(project, doc.Rev+1),
		)
		if err != nil {
			return domain.Project{}, fmt.Errorf("replace project: %w", err)
		}
		if res.MatchedCount == 1 {
			return project, nil
		}
	}
	return domain.Project{}, errTooMuchContention
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.projects().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
