package app

import (
	"context"
	"fmt"
	"time"

	"tracker-api/domain"
)

// Board groups a project's tasks by status for the kanban view.
type Board struct {
	Todo       []domain.Task `json:"todo"`
	InProgress []domain.Task `json:"inProgress"`
	Done       []domain.Task `json:"done"`
}

// NewProject carries the fields accepted at project creation.
type NewProject struct {
	Name        string
	Description string
	StartDate   time.Time
	EndDate     time.Time
}

// ProjectUpdate is a partial project update. Nil means leave the field alone.
type ProjectUpdate struct {
	Name        *string
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
}

// CreateProject creates a project in the caller's organization. Admin only.
func (s *Service) CreateProject(ctx context.Context, caller domain.Caller, in NewProject) (domain.Project, error) {
	if caller.Role != domain.RoleAdmin {
		return domain.Project{}, domain.ErrForbidden
	}
	now := s.now()
	project := domain.Project{
		ID:             s.newID(),
		Name:           in.Name,
		Description:    in.Description,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		OrganizationID: caller.OrganizationID,
		CreatedBy:      caller.ID,
		TaskIDs:        []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	created, err := s.store.CreateProject(ctx, project)
	if err != nil {
		return domain.Project{}, fmt.Errorf("persist project: %w", err)
	}
	return created, nil
}

// Projects lists the caller's organization projects.
func (s *Service) Projects(ctx context.Context, caller domain.Caller) ([]domain.Project, error) {
	projects, err := s.store.ProjectsByOrganization(ctx, caller.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// ProjectByID fetches one project visible to the caller.
func (s *Service) ProjectByID(ctx context.Context, caller domain.Caller, id string) (domain.Project, error) {
	project, err := s.store.ProjectByID(ctx, id)
	if err != nil {
		return domain.Project{}, fmt.Errorf("load project: %w", err)
	}
	if project.OrganizationID != caller.OrganizationID {
		return domain.Project{}, domain.ErrUnauthorized
	}
	return project, nil
}

// UpdateProject applies a partial update to a project. Admin only.
func (s *Service) UpdateProject(ctx context.Context, caller domain.Caller, id string, upd ProjectUpdate) (domain.Project, error) {
	if caller.Role != domain.RoleAdmin {
		return domain.Project{}, domain.ErrForbidden
	}
	updated, err := s.store.UpdateProject(ctx, id, func(p *domain.Project) error {
		if p.OrganizationID != caller.OrganizationID {
			return domain.ErrUnauthorized
		}
		if upd.Name != nil {
			p.Name = *upd.Name
		}
		if upd.Description != nil {
			p.Description = *upd.Description
		}
		if upd.StartDate != nil {
			p.StartDate = *upd.StartDate
		}
		if upd.EndDate != nil {
			p.EndDate = *upd.EndDate
		}
		p.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		if isRejection(err) {
			return domain.Project{}, err
		}
		return domain.Project{}, fmt.Errorf("update project: %w", err)
	}
	return updated, nil
}

// DeleteProject removes a project together with its tasks and their comments.
// Admin only.
func (s *Service) DeleteProject(ctx context.Context, caller domain.Caller, id string) error {
	project, err := s.ProjectByID(ctx, caller, id)
	if err != nil {
		return err
	}
	if caller.Role != domain.RoleAdmin {
		return domain.ErrForbidden
	}

	tasks, err := s.store.TasksByProject(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("list project tasks: %w", err)
	}
	for _, task := range tasks {
		if err := s.store.DeleteCommentsByTask(ctx, task.ID); err != nil {
			return fmt.Errorf("delete comments of task %s: %w", task.ID, err)
		}
		if err := s.store.DeleteTask(ctx, task.ID); err != nil {
			return fmt.Errorf("delete task %s: %w", task.ID, err)
		}
	}
	if err := s.store.DeleteProject(ctx, project.ID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// ProjectBoard returns a project's tasks grouped by status.
func (s *Service) ProjectBoard(ctx context.Context, caller domain.Caller, id string) (Board, error) {
	project, err := s.ProjectByID(ctx, caller, id)
	if err != nil {
		return Board{}, err
	}
	tasks, err := s.store.TasksByProject(ctx, project.ID)
	if err != nil {
		return Board{}, fmt.Errorf("list project tasks: %w", err)
	}

	board := Board{
		Todo:       []domain.Task{},
		InProgress: []domain.Task{},
		Done:       []domain.Task{},
	}
	for _, task := range tasks {
		switch task.Status {
		case domain.StatusInProgress:
			board.InProgress = append(board.InProgress, task)
		case domain.StatusDone:
			board.Done = append(board.Done, task)
		default:
			board.Todo = append(board.Todo, task)
		}
	}
	return board, nil
}
