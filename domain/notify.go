package domain

import "fmt"

// MutationKind distinguishes the pipelines that can produce notifications.
type MutationKind string

const (
	MutationCreated   MutationKind = "created"
	MutationUpdated   MutationKind = "updated"
	MutationCommented MutationKind = "commented"
)

// DueDateFormat renders due dates inside notification messages.
const DueDateFormat = "Mon Jan 02 2006"

// TaskChange describes one completed task mutation for the synthesizer.
// Task holds the post-mutation state; OldTitle the title before a rename.
type TaskChange struct {
	Task     Task
	Kind     MutationKind
	ActorID  string
	Changed  []Field
	OldTitle string
	Diff     *AssignmentDiff
}

// FieldChanged reports whether f was among the applied fields.
func (c TaskChange) FieldChanged(f Field) bool {
	for _, changed := range c.Changed {
		if changed == f {
			return true
		}
	}
	return false
}

// NotificationDraft is a synthesized (recipient, message) pair awaiting
// persistence and fan-out.
type NotificationDraft struct {
	UserID  string
	Message string
}

type notificationRule struct {
	applies func(TaskChange) bool
	drafts  func(TaskChange) []NotificationDraft
}

// The rules run in this fixed order. A recipient qualifying under several
// rules receives several distinct notifications; nothing is deduplicated.
var taskNotificationRules = []notificationRule{
	{ // title renamed
		applies: func(c TaskChange) bool {
			return c.Kind == MutationUpdated && c.FieldChanged(FieldTitle)
		},
		drafts: func(c TaskChange) []NotificationDraft {
			return perAssignee(c.Task, fmt.Sprintf("Task %q has been renamed to %q.", c.OldTitle, c.Task.Title))
		},
	},
	{ // description updated
		applies: func(c TaskChange) bool {
			return c.Kind == MutationUpdated && c.FieldChanged(FieldDescription)
		},
		drafts: func(c TaskChange) []NotificationDraft {
			return perAssignee(c.Task, fmt.Sprintf("Task %q description has been updated.", c.Task.Title))
		},
	},
	{ // assignee set replaced
		applies: func(c TaskChange) bool {
			return c.Kind == MutationUpdated && c.FieldChanged(FieldAssignedTo) && c.Diff != nil
		},
		drafts: func(c TaskChange) []NotificationDraft {
			var out []NotificationDraft
			for _, uid := range c.Diff.Added {
				out = append(out, NotificationDraft{UserID: uid, Message: fmt.Sprintf("You have been assigned to task %q.", c.Task.Title)})
			}
			for _, uid := range c.Diff.Removed {
				out = append(out, NotificationDraft{UserID: uid, Message: fmt.Sprintf("You have been removed from task %q.", c.Task.Title)})
			}
			for _, uid := range c.Diff.Retained {
				out = append(out, NotificationDraft{UserID: uid, Message: fmt.Sprintf("Task %q assignees have been updated.", c.Task.Title)})
			}
			return out
		},
	},
	{ // priority changed
		applies: func(c TaskChange) bool {
			return c.Kind == MutationUpdated && c.FieldChanged(FieldPriority)
		},
		drafts: func(c TaskChange) []NotificationDraft {
			return perAssignee(c.Task, fmt.Sprintf("Task %q priority changed to %s.", c.Task.Title, c.Task.Priority))
		},
	},
	{ // due date changed
		applies: func(c TaskChange) bool {
			return c.Kind == MutationUpdated && c.FieldChanged(FieldDueDate)
		},
		drafts: func(c TaskChange) []NotificationDraft {
			return perAssignee(c.Task, fmt.Sprintf("Task %q due date changed to %s.", c.Task.Title, c.Task.DueDate.Format(DueDateFormat)))
		},
	},
	{ // status changed: every assignee except the actor, plus the creator
		// when the actor is somebody else. Self-mutation stays silent.
		applies: func(c TaskChange) bool {
			return c.Kind == MutationUpdated && c.FieldChanged(FieldStatus)
		},
		drafts: func(c TaskChange) []NotificationDraft {
			msg := fmt.Sprintf("Task %q status changed to %s.", c.Task.Title, c.Task.Status)
			var out []NotificationDraft
			for _, uid := range c.Task.AssignedTo {
				if uid == c.ActorID {
					continue
				}
				out = append(out, NotificationDraft{UserID: uid, Message: msg})
			}
			if c.Task.CreatedBy != c.ActorID {
				out = append(out, NotificationDraft{UserID: c.Task.CreatedBy, Message: msg})
			}
			return out
		},
	},
	{ // new comment: assignees and the creator, minus the comment author
		applies: func(c TaskChange) bool {
			return c.Kind == MutationCommented
		},
		drafts: func(c TaskChange) []NotificationDraft {
			msg := fmt.Sprintf("A new message received in Task %q.", c.Task.Title)
			var out []NotificationDraft
			for _, uid := range c.Task.AssignedTo {
				if uid == c.ActorID {
					continue
				}
				out = append(out, NotificationDraft{UserID: uid, Message: msg})
			}
			creator := c.Task.CreatedBy
			if creator != c.ActorID && !c.Task.IsAssigned(creator) {
				out = append(out, NotificationDraft{UserID: creator, Message: msg})
			}
			return out
		},
	},
	{ // task created with assignees
		applies: func(c TaskChange) bool {
			return c.Kind == MutationCreated && len(c.Task.AssignedTo) > 0
		},
		drafts: func(c TaskChange) []NotificationDraft {
			return perAssignee(c.Task, fmt.Sprintf("A task titled %q has been assigned to you.", c.Task.Title))
		},
	},
}

// SynthesizeNotifications evaluates the ordered rule table against one task
// change and returns the drafts to persist and fan out, in rule order.
func SynthesizeNotifications(c TaskChange) []NotificationDraft {
	var out []NotificationDraft
	for _, rule := range taskNotificationRules {
		if rule.applies(c) {
			out = append(out, rule.drafts(c)...)
		}
	}
	return out
}

func perAssignee(t Task, message string) []NotificationDraft {
	out := make([]NotificationDraft, 0, len(t.AssignedTo))
	for _, uid := range t.AssignedTo {
		out = append(out, NotificationDraft{UserID: uid, Message: message})
	}
	return out
}
