package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"tracker-api/domain"
)

// NewTask carries the fields accepted at task creation.
type NewTask struct {
	Title       string
	Description string
	ProjectID   string
	AssignedTo  []string
	Status      domain.Status
	Priority    domain.Priority
	DueDate     time.Time
}

// CreateTask creates a task inside one of the caller's projects. Admin only.
// Every initial assignee is notified that the task was assigned to them.
func (s *Service) CreateTask(ctx context.Context, caller domain.Caller, in NewTask) (domain.Task, error) {
	if caller.Role != domain.RoleAdmin {
		return domain.Task{}, domain.ErrForbidden
	}

	project, err := s.store.ProjectByID(ctx, in.ProjectID)
	if err != nil {
		return domain.Task{}, fmt.Errorf("load project: %w", err)
	}
	if project.OrganizationID != caller.OrganizationID {
		return domain.Task{}, domain.ErrUnauthorized
	}

	assignees, err := s.resolveAssignees(ctx, caller.OrganizationID, in.AssignedTo)
	if err != nil {
		return domain.Task{}, err
	}

	status := in.Status
	if status == "" {
		status = domain.StatusTodo
	}
	priority := in.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}

	now := s.now()
	task := domain.Task{
		ID:             s.newID(),
		Title:          in.Title,
		Description:    in.Description,
		ProjectID:      project.ID,
		OrganizationID: project.OrganizationID,
		CreatedBy:      caller.ID,
		AssignedTo:     assignees,
		Status:         status,
		Priority:       priority,
		DueDate:        in.DueDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	created, err := s.store.CreateTask(ctx, task)
	if err != nil {
		return domain.Task{}, fmt.Errorf("persist task: %w", err)
	}

	if _, err := s.store.UpdateProject(ctx, project.ID, func(p *domain.Project) error {
		p.TaskIDs = append(p.TaskIDs, created.ID)
		return nil
	}); err != nil {
		s.logger.WithFields(log.Fields{
			"task_id":    created.ID,
			"project_id": project.ID,
			"error":      err.Error(),
		}).Warn("task created but project task list not updated")
	}

	drafts := domain.SynthesizeNotifications(domain.TaskChange{
		Task:    created,
		Kind:    domain.MutationCreated,
		ActorID: caller.ID,
	})
	s.deliverNotifications(ctx, drafts)

	return created, nil
}

// MutateTask applies a partial update to a task on behalf of the caller. The
// request is atomic: either every requested field is applied or none is. An
// empty update is a no-op that returns the current state after the same
// permission gate as a real update.
func (s *Service) MutateTask(ctx context.Context, caller domain.Caller, taskID string, upd domain.TaskUpdate) (domain.Task, error) {
	m := newMutationMetrics(s.logger, taskID, caller.ID)
	m.SetFieldsRequested(len(upd.Fields()))

	authStart := time.Now()
	current, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		m.Log(err)
		return domain.Task{}, fmt.Errorf("load task: %w", err)
	}
	if _, err := domain.Authorize(caller, current, upd.Fields()); err != nil {
		m.SetRejectReason(err.Error())
		m.ObserveAuthorize(time.Since(authStart))
		m.Log(err)
		return domain.Task{}, err
	}
	m.ObserveAuthorize(time.Since(authStart))

	if upd.Empty() {
		m.Log(nil)
		return current, nil
	}

	if upd.AssignedTo != nil {
		assignees, err := s.resolveAssignees(ctx, current.OrganizationID, upd.AssignedTo)
		if err != nil {
			m.SetRejectReason(err.Error())
			m.Log(err)
			return domain.Task{}, err
		}
		upd.AssignedTo = assignees
	}

	var change domain.TaskChange
	persistStart := time.Now()
	updated, err := s.store.UpdateTask(ctx, taskID, func(t *domain.Task) error {
		// The gate runs again against the state being written: the task may
		// have been reassigned or moved since the pre-check read it.
		if _, err := domain.Authorize(caller, *t, upd.Fields()); err != nil {
			return err
		}
		change = domain.TaskChange{
			Kind:     domain.MutationUpdated,
			ActorID:  caller.ID,
			OldTitle: t.Title,
		}
		var applied []domain.Field
		if upd.Title != nil {
			t.Title = *upd.Title
			applied = append(applied, domain.FieldTitle)
		}
		if upd.Description != nil {
			t.Description = *upd.Description
			applied = append(applied, domain.FieldDescription)
		}
		if upd.AssignedTo != nil {
			diff := domain.DiffAssignees(t.AssignedTo, upd.AssignedTo)
			change.Diff = &diff
			t.AssignedTo = append([]string(nil), upd.AssignedTo...)
			applied = append(applied, domain.FieldAssignedTo)
		}
		if upd.Status != nil {
			t.Status = *upd.Status
			applied = append(applied, domain.FieldStatus)
		}
		if upd.Priority != nil {
			t.Priority = *upd.Priority
			applied = append(applied, domain.FieldPriority)
		}
		if upd.DueDate != nil {
			t.DueDate = *upd.DueDate
			applied = append(applied, domain.FieldDueDate)
		}
		t.UpdatedAt = s.now()
		change.Changed = applied
		return nil
	})
	if err != nil {
		if isRejection(err) {
			m.SetRejectReason(err.Error())
			m.Log(err)
			return domain.Task{}, err
		}
		m.Log(err)
		return domain.Task{}, fmt.Errorf("persist task: %w", err)
	}
	m.ObservePersist(time.Since(persistStart))
	change.Task = updated

	if change.FieldChanged(domain.FieldStatus) {
		s.broadcast.Broadcast(ProjectRoom(updated.ProjectID), EventTaskStatusUpdated, updated)
		m.SetStatusBroadcast(true)
	}

	notifyStart := time.Now()
	drafts := domain.SynthesizeNotifications(change)
	s.deliverNotifications(ctx, drafts)
	m.ObserveNotify(time.Since(notifyStart))
	m.SetNotifications(len(drafts))

	m.Log(nil)
	return updated, nil
}

// DeleteTask removes a task, its comments, and its entry in the owning
// project's task list. Admin only.
func (s *Service) DeleteTask(ctx context.Context, caller domain.Caller, taskID string) error {
	task, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}
	if err := domain.AuthorizeTaskDelete(caller, task); err != nil {
		return err
	}

	if _, err := s.store.UpdateProject(ctx, task.ProjectID, func(p *domain.Project) error {
		kept := p.TaskIDs[:0]
		for _, id := range p.TaskIDs {
			if id != taskID {
				kept = append(kept, id)
			}
		}
		p.TaskIDs = kept
		return nil
	}); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("detach task from project: %w", err)
	}

	if err := s.store.DeleteCommentsByTask(ctx, taskID); err != nil {
		return fmt.Errorf("delete task comments: %w", err)
	}
	if err := s.store.DeleteTask(ctx, taskID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// TaskByID fetches one task visible to the caller.
func (s *Service) TaskByID(ctx context.Context, caller domain.Caller, taskID string) (domain.Task, error) {
	task, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		return domain.Task{}, fmt.Errorf("load task: %w", err)
	}
	if task.OrganizationID != caller.OrganizationID {
		return domain.Task{}, domain.ErrUnauthorized
	}
	return task, nil
}

// Tasks lists the caller's organization tasks, filtered and paginated. The
// second return value is the total match count before pagination.
func (s *Service) Tasks(ctx context.Context, caller domain.Caller, filter TaskFilter) ([]domain.Task, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}
	tasks, total, err := s.store.TasksByOrganization(ctx, caller.OrganizationID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, total, nil
}

// MyTasks lists the caller's organization tasks assigned to the caller.
func (s *Service) MyTasks(ctx context.Context, caller domain.Caller, filter TaskFilter) ([]domain.Task, int64, error) {
	filter.AssignedTo = caller.ID
	return s.Tasks(ctx, caller, filter)
}

// resolveAssignees checks that every id names a distinct user inside the given
// organization and returns the ids in request order. A nil input stays nil so
// callers can distinguish "unchanged" from "cleared".
func (s *Service) resolveAssignees(ctx context.Context, orgID string, ids []string) ([]string, error) {
	if ids == nil {
		return nil, nil
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate assignee %s", domain.ErrInvalidAssignee, id)
		}
		seen[id] = struct{}{}
	}

	users, err := s.store.UsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve assignees: %w", err)
	}
	found := make(map[string]domain.User, len(users))
	for _, u := range users {
		found[u.ID] = u
	}
	for _, id := range ids {
		u, ok := found[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown user %s", domain.ErrInvalidAssignee, id)
		}
		if u.OrganizationID != orgID {
			return nil, fmt.Errorf("%w: user %s is outside the organization", domain.ErrInvalidAssignee, id)
		}
	}
	return append([]string(nil), ids...), nil
}

func isRejection(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized) ||
		errors.Is(err, domain.ErrForbidden) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrInvalidAssignee)
}
