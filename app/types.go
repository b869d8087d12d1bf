package app

import (
	"context"

	"tracker-api/domain"
)

// Store abstracts persistence for the service: typed access per entity, with
// atomic single-document read-modify-write exposed as update-by-mutator. The
// mutator may be invoked more than once under contention; implementations
// must apply it to a freshly read document each attempt and guarantee that
// the returned entity is the state that was actually written.
type Store interface {
	CreateOrganization(ctx context.Context, org domain.Organization) (domain.Organization, error)
	OrganizationByID(ctx context.Context, id string) (domain.Organization, error)

	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
	UserByID(ctx context.Context, id string) (domain.User, error)
	UserByEmail(ctx context.Context, email string) (domain.User, error)
	UsersByIDs(ctx context.Context, ids []string) ([]domain.User, error)
	UsersByOrganization(ctx context.Context, orgID, search string) ([]domain.User, error)
	CountUsersByOrganization(ctx context.Context, orgID string) (int64, error)

	CreateProject(ctx context.Context, project domain.Project) (domain.Project, error)
	ProjectByID(ctx context.Context, id string) (domain.Project, error)
	ProjectsByOrganization(ctx context.Context, orgID string) ([]domain.Project, error)
	UpdateProject(ctx context.Context, id string, mutate func(*domain.Project) error) (domain.Project, error)
	DeleteProject(ctx context.Context, id string) error

	CreateTask(ctx context.Context, task domain.Task) (domain.Task, error)
	TaskByID(ctx context.Context, id string) (domain.Task, error)
	TasksByProject(ctx context.Context, projectID string) ([]domain.Task, error)
	TasksByOrganization(ctx context.Context, orgID string, filter TaskFilter) ([]domain.Task, int64, error)
	UpdateTask(ctx context.Context, id string, mutate func(*domain.Task) error) (domain.Task, error)
	DeleteTask(ctx context.Context, id string) error

	CreateComment(ctx context.Context, comment domain.Comment) (domain.Comment, error)
	CommentByID(ctx context.Context, id string) (domain.Comment, error)
	CommentsByTask(ctx context.Context, taskID string) ([]domain.Comment, error)
	DeleteComment(ctx context.Context, id string) error
	DeleteCommentsByTask(ctx context.Context, taskID string) error

	CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error)
	NotificationsByUser(ctx context.Context, userID string) ([]domain.Notification, error)
	UpdateNotification(ctx context.Context, id string, mutate func(*domain.Notification) error) (domain.Notification, error)
}

// Broadcaster delivers an event payload to every connection currently joined
// to a room. Delivery is best effort; a room with no listeners is a no-op.
type Broadcaster interface {
	Broadcast(room, event string, payload any)
}

// Room-scoped event names pushed to clients. Each event carries the full
// post-mutation entity so clients can replace local state without a refetch.
const (
	EventCommentAdded      = "commentAdded"
	EventCommentDeleted    = "commentDeleted"
	EventNewNotification   = "newNotification"
	EventTaskStatusUpdated = "taskStatusUpdated"
)

// Room labels. Personal rooms carry a user's notification stream, task rooms
// the comment stream for one task's viewers, project rooms the kanban
// status-change stream for one board's viewers.
func UserRoom(userID string) string       { return "user:" + userID }
func TaskRoom(taskID string) string       { return "task:" + taskID }
func ProjectRoom(projectID string) string { return "project:" + projectID }

// TaskFilter narrows an organization task listing.
type TaskFilter struct {
	Search     string
	Status     domain.Status
	Priority   domain.Priority
	AssignedTo string
	Page       int
	Limit      int
}
