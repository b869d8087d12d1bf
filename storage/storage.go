// Package storage persists tracker entities in MongoDB. Documents carry a rev
// counter; updates are optimistic read-modify-write loops that replace the
// document only when the rev is unchanged, so concurrent mutations of the
// same entity serialize instead of clobbering each other.
package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	colOrganizations = "organizations"
	colUsers         = "users"
	colProjects      = "projects"
	colTasks         = "tasks"
	colComments      = "comments"
	colNotifications = "notifications"
)

// casRetries bounds the optimistic update loop. Exhausting it means the
// entity is under constant concurrent mutation.
const casRetries = 5

var errTooMuchContention = errors.New("storage: update retries exhausted")

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to MongoDB and verifies the connection with a ping.
func New(ctx context.Context, uri, dbName string) (*Store, error) {
	if uri == "" {
		return nil, errors.New("storage: empty mongo uri")
	}
	if dbName == "" {
		return nil, errors.New("storage: empty database name")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{client: client, db: client.Database(dbName)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
