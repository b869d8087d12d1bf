package domain

import (
	"testing"
	"time"
)

func draftsFor(t *testing.T, drafts []NotificationDraft, userID string) []string {
	t.Helper()
	var msgs []string
	for _, d := range drafts {
		if d.UserID == userID {
			msgs = append(msgs, d.Message)
		}
	}
	return msgs
}

func TestSynthesizeTaskCreatedWithAssignees(t *testing.T) {
	change := TaskChange{
		Kind:    MutationCreated,
		ActorID: "admin1",
		Task: Task{
			Title:      "Design review",
			CreatedBy:  "admin1",
			AssignedTo: []string{"alice", "bob"},
			Priority:   PriorityLow,
		},
	}

	drafts := SynthesizeNotifications(change)
	if len(drafts) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(drafts))
	}
	want := `A task titled "Design review" has been assigned to you.`
	for i, uid := range []string{"alice", "bob"} {
		if drafts[i].UserID != uid {
			t.Fatalf("expected draft %d for %s, got %s", i, uid, drafts[i].UserID)
		}
		if drafts[i].Message != want {
			t.Fatalf("unexpected message: %q", drafts[i].Message)
		}
	}
}

func TestSynthesizeTaskCreatedWithoutAssignees(t *testing.T) {
	drafts := SynthesizeNotifications(TaskChange{Kind: MutationCreated, Task: Task{Title: "x"}})
	if len(drafts) != 0 {
		t.Fatalf("expected no drafts, got %d", len(drafts))
	}
}

func TestSynthesizeAssigneeReplacement(t *testing.T) {
	diff := DiffAssignees([]string{"alice", "bob"}, []string{"bob", "carol"})
	change := TaskChange{
		Kind:    MutationUpdated,
		ActorID: "admin1",
		Changed: []Field{FieldAssignedTo},
		Diff:    &diff,
		Task: Task{
			Title:      "Design review",
			CreatedBy:  "admin1",
			AssignedTo: []string{"bob", "carol"},
		},
	}

	drafts := SynthesizeNotifications(change)
	if len(drafts) != 3 {
		t.Fatalf("expected 3 drafts, got %d", len(drafts))
	}
	if got := draftsFor(t, drafts, "carol"); len(got) != 1 || got[0] != `You have been assigned to task "Design review".` {
		t.Fatalf("unexpected carol drafts: %v", got)
	}
	if got := draftsFor(t, drafts, "alice"); len(got) != 1 || got[0] != `You have been removed from task "Design review".` {
		t.Fatalf("unexpected alice drafts: %v", got)
	}
	if got := draftsFor(t, drafts, "bob"); len(got) != 1 || got[0] != `Task "Design review" assignees have been updated.` {
		t.Fatalf("unexpected bob drafts: %v", got)
	}
}

func TestSynthesizeStatusChangeByAssignee(t *testing.T) {
	change := TaskChange{
		Kind:    MutationUpdated,
		ActorID: "bob",
		Changed: []Field{FieldStatus},
		Task: Task{
			Title:      "Design review",
			CreatedBy:  "admin1",
			AssignedTo: []string{"bob", "carol"},
			Status:     StatusInProgress,
		},
	}

	drafts := SynthesizeNotifications(change)
	if len(drafts) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(drafts))
	}
	want := `Task "Design review" status changed to in-progress.`
	if got := draftsFor(t, drafts, "carol"); len(got) != 1 || got[0] != want {
		t.Fatalf("unexpected carol drafts: %v", got)
	}
	if got := draftsFor(t, drafts, "admin1"); len(got) != 1 || got[0] != want {
		t.Fatalf("unexpected creator drafts: %v", got)
	}
	if got := draftsFor(t, drafts, "bob"); len(got) != 0 {
		t.Fatalf("actor must not be notified, got %v", got)
	}
}

func TestSynthesizeStatusChangeByCreatorIsSilentToCreator(t *testing.T) {
	change := TaskChange{
		Kind:    MutationUpdated,
		ActorID: "admin1",
		Changed: []Field{FieldStatus},
		Task: Task{
			Title:      "Design review",
			CreatedBy:  "admin1",
			AssignedTo: []string{"bob"},
			Status:     StatusDone,
		},
	}

	drafts := SynthesizeNotifications(change)
	if len(drafts) != 1 {
		t.Fatalf("expected 1 draft, got %d", len(drafts))
	}
	if drafts[0].UserID != "bob" {
		t.Fatalf("expected draft for bob, got %s", drafts[0].UserID)
	}
}

func TestSynthesizeRename(t *testing.T) {
	change := TaskChange{
		Kind:     MutationUpdated,
		ActorID:  "admin1",
		Changed:  []Field{FieldTitle},
		OldTitle: "Design review",
		Task: Task{
			Title:      "Design review v2",
			AssignedTo: []string{"alice"},
		},
	}

	drafts := SynthesizeNotifications(change)
	if len(drafts) != 1 {
		t.Fatalf("expected 1 draft, got %d", len(drafts))
	}
	want := `Task "Design review" has been renamed to "Design review v2".`
	if drafts[0].Message != want {
		t.Fatalf("unexpected message: %q", drafts[0].Message)
	}
}

func TestSynthesizeDueDateMessage(t *testing.T) {
	due := time.Date(2026, time.September, 4, 0, 0, 0, 0, time.UTC)
	change := TaskChange{
		Kind:    MutationUpdated,
		ActorID: "admin1",
		Changed: []Field{FieldDueDate},
		Task: Task{
			Title:      "Design review",
			AssignedTo: []string{"alice"},
			DueDate:    due,
		},
	}

	drafts := SynthesizeNotifications(change)
	if len(drafts) != 1 {
		t.Fatalf("expected 1 draft, got %d", len(drafts))
	}
	want := `Task "Design review" due date changed to Fri Sep 04 2026.`
	if drafts[0].Message != want {
		t.Fatalf("unexpected message: %q", drafts[0].Message)
	}
}

func TestSynthesizeMultipleRulesAccumulate(t *testing.T) {
	// A single mutation touching title, priority and status produces one
	// notification per rule for the same recipient — never deduplicated —
	// and in rule-table order.
	change := TaskChange{
		Kind:     MutationUpdated,
		ActorID:  "admin1",
		Changed:  []Field{FieldTitle, FieldPriority, FieldStatus},
		OldTitle: "Old",
		Task: Task{
			Title:      "New",
			CreatedBy:  "admin1",
			AssignedTo: []string{"alice"},
			Priority:   PriorityHigh,
			Status:     StatusDone,
		},
	}

	drafts := SynthesizeNotifications(change)
	if len(drafts) != 3 {
		t.Fatalf("expected 3 drafts, got %d", len(drafts))
	}
	wantOrder := []string{
		`Task "Old" has been renamed to "New".`,
		`Task "New" priority changed to high.`,
		`Task "New" status changed to done.`,
	}
	for i, want := range wantOrder {
		if drafts[i].UserID != "alice" {
			t.Fatalf("draft %d: expected alice, got %s", i, drafts[i].UserID)
		}
		if drafts[i].Message != want {
			t.Fatalf("draft %d: expected %q, got %q", i, want, drafts[i].Message)
		}
	}
}

func TestSynthesizeCommentNotifications(t *testing.T) {
	change := TaskChange{
		Kind:    MutationCommented,
		ActorID: "bob",
		Task: Task{
			Title:      "Design review",
			CreatedBy:  "admin1",
			AssignedTo: []string{"bob", "carol"},
		},
	}

	drafts := SynthesizeNotifications(change)
	if len(drafts) != 2 {
		t.Fatalf("expected 2 drafts, got %d", len(drafts))
	}
	want := `A new message received in Task "Design review".`
	if got := draftsFor(t, drafts, "carol"); len(got) != 1 || got[0] != want {
		t.Fatalf("unexpected carol drafts: %v", got)
	}
	if got := draftsFor(t, drafts, "admin1"); len(got) != 1 || got[0] != want {
		t.Fatalf("unexpected creator drafts: %v", got)
	}
	if got := draftsFor(t, drafts, "bob"); len(got) != 0 {
		t.Fatalf("author must not be notified, got %v", got)
	}
}

func TestSynthesizeCommentCreatorAlsoAssignedNotifiedOnce(t *testing.T) {
	change := TaskChange{
		Kind:    MutationCommented,
		ActorID: "carol",
		Task: Task{
			Title:      "Design review",
			CreatedBy:  "admin1",
			AssignedTo: []string{"admin1", "carol"},
		},
	}

	drafts := SynthesizeNotifications(change)
	if got := draftsFor(t, drafts, "admin1"); len(got) != 1 {
		t.Fatalf("expected exactly one draft for assigned creator, got %d", len(got))
	}
}
