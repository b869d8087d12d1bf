package app

import (
	"context"
	"sort"
	"strings"
	"sync"

	"tracker-api/domain"
)

// memStore is an in-memory Store for the orchestrator tests. It counts writes
// so tests can assert that a rejected request touched nothing.
type memStore struct {
	mu            sync.Mutex
	orgs          map[string]domain.Organization
	users         map[string]domain.User
	projects      map[string]domain.Project
	tasks         map[string]domain.Task
	comments      map[string]domain.Comment
	notifications map[string]domain.Notification

	writes int

	failNotifications bool
}

func newMemStore() *memStore {
	return &memStore{
		orgs:          make(map[string]domain.Organization),
		users:         make(map[string]domain.User),
		projects:      make(map[string]domain.Project),
		tasks:         make(map[string]domain.Task),
		comments:      make(map[string]domain.Comment),
		notifications: make(map[string]domain.Notification),
	}
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *memStore) CreateOrganization(_ context.Context, org domain.Organization) (domain.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.orgs[org.ID] = org
	return org, nil
}

func (m *memStore) OrganizationByID(_ context.Context, id string) (domain.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[id]
	if !ok {
		return domain.Organization{}, domain.ErrNotFound
	}
	return org, nil
}

func (m *memStore) CreateUser(_ context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return domain.User{}, domain.ErrEmailTaken
		}
	}
	m.writes++
	m.users[user.ID] = user
	return user, nil
}

func (m *memStore) UserByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return user, nil
}

func (m *memStore) UserByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (m *memStore) UsersByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, id := range ids {
		if user, ok := m.users[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

func (m *memStore) UsersByOrganization(_ context.Context, orgID, search string) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, user := range m.users {
		if user.OrganizationID != orgID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(user.Name), strings.ToLower(search)) {
			continue
		}
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) CountUsersByOrganization(_ context.Context, orgID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, user := range m.users {
		if user.OrganizationID == orgID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateProject(_ context.Context, project domain.Project) (domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.projects[project.ID] = project
	return project, nil
}

func (m *memStore) ProjectByID(_ context.Context, id string) (domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	project, ok := m.projects[id]
	if !ok {
		return domain.Project{}, domain.ErrNotFound
	}
	return project, nil
}

func (m *memStore) ProjectsByOrganization(_ context.Context, orgID string) ([]domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Project
	for _, project := range m.projects {
		if project.OrganizationID == orgID {
			out = append(out, project)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) UpdateProject(_ context.Context, id string, mutate func(*domain.Project) error) (domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	project, ok := m.projects[id]
	if !ok {
		return domain.Project{}, domain.ErrNotFound
	}
	copied := project
	copied.TaskIDs = append([]string(nil), project.TaskIDs...)
	if err := mutate(&copied); err != nil {
		return domain.Project{}, err
	}
	m.writes++
	m.projects[id] = copied
	return copied, nil
}

func (m *memStore) DeleteProject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return domain.ErrNotFound
	}
	m.writes++
	delete(m.projects, id)
	return nil
}

func (m *memStore) CreateTask(_ context.Context, task domain.Task) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.tasks[task.ID] = task
	return task, nil
}

func (m *memStore) TaskByID(_ context.Context, id string) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return domain.Task{}, domain.ErrNotFound
	}
	return task, nil
}

func (m *memStore) TasksByProject(_ context.Context, projectID string) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Task
	for _, task := range m.tasks {
		if task.ProjectID == projectID {
			out = append(out, task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) TasksByOrganization(_ context.Context, orgID string, filter TaskFilter) ([]domain.Task, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []domain.Task
	for _, task := range m.tasks {
		if task.OrganizationID != orgID {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(task.Title), strings.ToLower(filter.Search)) {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Priority != "" && task.Priority != filter.Priority {
			continue
		}
		if filter.AssignedTo != "" && !task.IsAssigned(filter.AssignedTo) {
			continue
		}
		matched = append(matched, task)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := int64(len(matched))

	start := (filter.Page - 1) * filter.Limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (m *memStore) UpdateTask(_ context.Context, id string, mutate func(*domain.Task) error) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return domain.Task{}, domain.ErrNotFound
	}
	copied := task
	copied.AssignedTo = append([]string(nil), task.AssignedTo...)
	if err := mutate(&copied); err != nil {
		return domain.Task{}, err
	}
	m.writes++
	m.tasks[id] = copied
	return copied, nil
}

func (m *memStore) DeleteTask(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return domain.ErrNotFound
	}
	m.writes++
	delete(m.tasks, id)
	return nil
}

func (m *memStore) CreateComment(_ context.Context, comment domain.Comment) (domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.comments[comment.ID] = comment
	return comment, nil
}

func (m *memStore) CommentByID(_ context.Context, id string) (domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	comment, ok := m.comments[id]
	if !ok {
		return domain.Comment{}, domain.ErrNotFound
	}
	return comment, nil
}

func (m *memStore) CommentsByTask(_ context.Context, taskID string) ([]domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Comment
	for _, comment := range m.comments {
		if comment.TaskID == taskID {
			out = append(out, comment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) DeleteComment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[id]; !ok {
		return domain.ErrNotFound
	}
	m.writes++
	delete(m.comments, id)
	return nil
}

func (m *memStore) DeleteCommentsByTask(_ context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, comment := range m.comments {
		if comment.TaskID == taskID {
			m.writes++
			delete(m.comments, id)
		}
	}
	return nil
}

func (m *memStore) CreateNotification(_ context.Context, n domain.Notification) (domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNotifications {
		return domain.Notification{}, context.DeadlineExceeded
	}
	m.writes++
	m.notifications[n.ID] = n
	return n, nil
}

func (m *memStore) NotificationsByUser(_ context.Context, userID string) ([]domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Notification
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) UpdateNotification(_ context.Context, id string, mutate func(*domain.Notification) error) (domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return domain.Notification{}, domain.ErrNotFound
	}
	copied := n
	if err := mutate(&copied); err != nil {
		return domain.Notification{}, err
	}
	m.writes++
	m.notifications[id] = copied
	return copied, nil
}
