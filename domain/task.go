package domain

import "time"

// Status is the kanban column a task sits in.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task is a single tracked work item. OrganizationID is set at creation from
// the parent project and never changes afterwards.
type Task struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	ProjectID      string    `json:"projectId"`
	OrganizationID string    `json:"organizationId"`
	CreatedBy      string    `json:"createdBy"`
	AssignedTo     []string  `json:"assignedTo"`
	Status         Status    `json:"status"`
	Priority       Priority  `json:"priority"`
	DueDate        time.Time `json:"dueDate"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// IsAssigned reports whether userID is in the task's assignee set.
func (t Task) IsAssigned(userID string) bool {
	for _, id := range t.AssignedTo {
		if id == userID {
			return true
		}
	}
	return false
}

// Field names a mutable task attribute for authorization and change tracking.
type Field string

const (
	FieldTitle       Field = "title"
	FieldDescription Field = "description"
	FieldAssignedTo  Field = "assignedTo"
	FieldStatus      Field = "status"
	FieldPriority    Field = "priority"
	FieldDueDate     Field = "dueDate"
)

// TaskUpdate is a partial task mutation. Nil pointers mean "field not present
// in the request". AssignedTo, when non-nil, replaces the assignee set
// wholesale; incremental adds are deliberately not supported.
type TaskUpdate struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	AssignedTo  []string   `json:"assignedTo"`
	Status      *Status    `json:"status"`
	Priority    *Priority  `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
}

// Fields lists the fields present in the update, in declaration order.
func (u TaskUpdate) Fields() []Field {
	fields := make([]Field, 0, 6)
	if u.Title != nil {
		fields = append(fields, FieldTitle)
	}
	if u.Description != nil {
		fields = append(fields, FieldDescription)
	}
	if u.AssignedTo != nil {
		fields = append(fields, FieldAssignedTo)
	}
	if u.Status != nil {
		fields = append(fields, FieldStatus)
	}
	if u.Priority != nil {
		fields = append(fields, FieldPriority)
	}
	if u.DueDate != nil {
		fields = append(fields, FieldDueDate)
	}
	return fields
}

// Empty reports whether the update carries no fields at all.
func (u TaskUpdate) Empty() bool {
	return len(u.Fields()) == 0
}
