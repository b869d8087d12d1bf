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

	"tracker-api/domain"
)

type organizationDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	CreatedAt time.Time `bson:"createdAt"`
}

type userDoc struct {
	ID             string    `bson:"_id"`
	Name           string    `bson:"name"`
	Email          string    `bson:"email"`
	PasswordHash   string    `bson:"passwordHash"`
	OrganizationID string    `bson:"organizationId"`
	Role           string    `bson:"role"`
	CreatedAt      time.Time `bson:"createdAt"`
}

func userToDoc(u domain.User) userDoc {
	return userDoc{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		PasswordHash:   u.PasswordHash,
		OrganizationID: u.OrganizationID,
		Role:           string(u.Role),
		CreatedAt:      u.CreatedAt,
	}
}

func (d userDoc) toUser() domain.User {
	return domain.User{
		ID:             d.ID,
		Name:           d.Name,
		Email:          d.Email,
		PasswordHash:   d.PasswordHash,
		OrganizationID: d.OrganizationID,
		Role:           domain.Role(d.Role),
		CreatedAt:      d.CreatedAt,
	}
}

func (s *Store) organizations() *mongo.Collection {
	return s.db.Collection(colOrganizations)
}

func (s *Store) users() *mongo.Collection {
	return s.db.Collection(colUsers)
}

func (s *Store) CreateOrganization(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	doc := organizationDoc{ID: org.ID, Name: org.Name, CreatedAt: org.CreatedAt}
	if _, err := s.organizations().InsertOne(ctx, doc); err != nil {
		return domain.Organization{}, fmt.Errorf("insert organization: %w", err)
	}
	return org, nil
}

func (s *Store) OrganizationByID(ctx context.Context, id string) (domain.Organization, error) {
	var doc organizationDoc
	err := s.organizations().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Organization{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Organization{}, fmt.Errorf("find organization: %w", err)
	}
	return domain.Organization{ID: doc.ID, Name: doc.Name, CreatedAt: doc.CreatedAt}, nil
}

// CreateUser relies on the unique index on email (see the provision tool) to
// reject duplicate registrations.
func (s *Store) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	if _, err := s.users().InsertOne(ctx, userToDoc(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (domain.User, error) {
	var doc userDoc
	err := s.users().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	return doc.toUser(), nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	var doc userDoc
	err := s.users().FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return doc.toUser(), nil
}

func (s *Store) UsersByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := s.users().Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	return decodeUsers(ctx, cursor)
}

func (s *Store) UsersByOrganization(ctx context.Context, orgID, search string) ([]domain.User, error) {
	query := bson.M{"organizationId": orgID}
	if search != "" {
		query["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.users().Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find organization users: %w", err)
	}
	return decodeUsers(ctx, cursor)
}

func (s *Store) CountUsersByOrganization(ctx context.Context, orgID string) (int64, error) {
	n, err := s.users().CountDocuments(ctx, bson.M{"organizationId": orgID})
	if err != nil {
		return 0, fmt.Errorf("count organization users: %w", err)
	}
	return n, nil
}

func decodeUsers(ctx context.Context, cursor *mongo.Cursor) ([]domain.User, error) {
	defer cursor.Close(ctx)
	var out []domain.User
	for cursor.Next(ctx) {
		var doc userDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		out = append(out, doc.toUser())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}
