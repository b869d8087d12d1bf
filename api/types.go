package api

import (
	"context"

	"tracker-api/app"
	"tracker-api/domain"
)

// Service abstracts the mutation orchestrator for handlers.
type Service interface {
	CreateOrganization(ctx context.Context, name string) (domain.Organization, error)
	Signup(ctx context.Context, in app.NewUser) (domain.User, error)
	Login(ctx context.Context, email, password string) (domain.User, error)
	Members(ctx context.Context, caller domain.Caller, search string) ([]domain.User, error)

	CreateProject(ctx context.Context, caller domain.Caller, in app.NewProject) (domain.Project, error)
	Projects(ctx context.Context, caller domain.Caller) ([]domain.Project, error)
	ProjectByID(ctx context.Context, caller domain.Caller, id string) (domain.Project, error)
	UpdateProject(ctx context.Context, caller domain.Caller, id string, upd app.ProjectUpdate) (domain.Project, error)
	DeleteProject(ctx context.Context, caller domain.Caller, id string) error
	ProjectBoard(ctx context.Context, caller domain.Caller, id string) (app.Board, error)

	CreateTask(ctx context.Context, caller domain.Caller, in app.NewTask) (domain.Task, error)
	TaskByID(ctx context.Context, caller domain.Caller, id string) (domain.Task, error)
	Tasks(ctx context.Context, caller domain.Caller, filter app.TaskFilter) ([]domain.Task, int64, error)
	MyTasks(ctx context.Context, caller domain.Caller, filter app.TaskFilter) ([]domain.Task, int64, error)
	MutateTask(ctx context.Context, caller domain.Caller, id string, upd domain.TaskUpdate) (domain.Task, error)
	DeleteTask(ctx context.Context, caller domain.Caller, id string) error

	Comments(ctx context.Context, caller domain.Caller, taskID string) ([]domain.Comment, error)
	AddComment(ctx context.Context, caller domain.Caller, taskID, text string) (domain.Comment, error)
	DeleteComment(ctx context.Context, caller domain.Caller, commentID string) error

	Notifications(ctx context.Context, caller domain.Caller) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, caller domain.Caller, id string) (domain.Notification, error)
}

// Authenticator is implemented by types able to resolve callers from headers.
type Authenticator interface {
	CallerFromAuthHeader(string) (domain.Caller, error)
}
