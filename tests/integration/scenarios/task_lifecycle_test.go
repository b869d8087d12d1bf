package scenarios

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestTaskLifecycle(t *testing.T) {
	tn := newTenant(t)
	p := tn.createProject(t, "lifecycle")
	title := fmt.Sprintf("lifecycle-%d", time.Now().UnixNano())
	created := tn.createTask(t, p.ID, title, []string{tn.memberID})

	// assignment notification reaches the member
	pollNotifications(t, tn.member, func(list []notification) bool {
		for _, n := range list {
			if strings.Contains(n.Message, title) {
				return true
			}
		}
		return false
	})

	// the assigned member moves the task across the board
	var updated task
	resp, err := tn.member.PatchJSON("/api/tasks/"+created.ID, map[string]string{"status": "done"}, &updated)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("member status change: %v status %v", err, status(resp))
	}
	if updated.Status != "done" {
		t.Fatalf("expected done, got %q", updated.Status)
	}

	// the creator hears about the status change
	pollNotifications(t, tn.admin, func(list []notification) bool {
		for _, n := range list {
			if strings.Contains(n.Message, "status changed to done") {
				return true
			}
		}
		return false
	})

	// members cannot touch anything beyond status
	resp, err = tn.member.PatchJSON("/api/tasks/"+created.ID, map[string]string{"title": "hijack"}, nil)
	if err != nil {
		t.Fatalf("member rename request: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for member rename, got %v", resp.StatusCode)
	}

	// admin deletes, task disappears
	resp, err = tn.admin.Delete("/api/tasks/" + created.ID)
	if err != nil || resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete task: %v status %v", err, status(resp))
	}
	resp, err = tn.admin.GetJSON("/api/tasks/"+created.ID, nil)
	if err != nil {
		t.Fatalf("fetch deleted task: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %v", resp.StatusCode)
	}
}

func TestNotificationReadFlow(t *testing.T) {
	tn := newTenant(t)
	p := tn.createProject(t, "read-flow")
	title := fmt.Sprintf("read-flow-%d", time.Now().UnixNano())
	tn.createTask(t, p.ID, title, []string{tn.memberID})

	list := pollNotifications(t, tn.member, func(list []notification) bool { return len(list) > 0 })

	var marked notification
	resp, err := tn.member.PatchJSON("/api/notifications/"+list[0].ID+"/read", nil, &marked)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("mark read: %v status %v", err, status(resp))
	}
	if !marked.IsRead {
		t.Fatal("expected notification to be marked read")
	}

	// another user's notification is off limits
	resp, err = tn.admin.PatchJSON("/api/notifications/"+list[0].ID+"/read", nil, nil)
	if err != nil {
		t.Fatalf("cross-user mark read: %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", resp.StatusCode)
	}
}
