package scenarios

import (
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"trackertest/internal/httpclient"
)

type organization struct {
	ID string `json:"id"`
}

type user struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type project struct {
	ID string `json:"id"`
}

type task struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Status     string   `json:"status"`
	AssignedTo []string `json:"assignedTo"`
}

type notification struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	IsRead  bool   `json:"isRead"`
}

func apiBase(t *testing.T) string {
	base := os.Getenv("API_BASE")
	if base == "" {
		base = "http://localhost:8080"
	}
	if _, err := http.Get(base + "/healthz"); err != nil {
		t.Skipf("skipping, API not reachable: %v", err)
	}
	return base
}

// tenant is a freshly provisioned organization with an admin (first signup)
// and a member, each holding a logged-in client.
type tenant struct {
	orgID    string
	admin    *httpclient.Client
	adminID  string
	member   *httpclient.Client
	memberID string
}

func newTenant(t *testing.T) *tenant {
	base := apiBase(t)
	anon := httpclient.New(base, "")
	suffix := fmt.Sprintf("%d", time.Now().UnixNano())

	var org organization
	resp, err := anon.PostJSON("/api/organizations", map[string]string{"name": "it-" + suffix}, &org)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("create organization: %v status %v", err, status(resp))
	}

	adminClient, adminID := signupAndLogin(t, base, org.ID, "admin-"+suffix)
	memberClient, memberID := signupAndLogin(t, base, org.ID, "member-"+suffix)

	return &tenant{
		orgID:    org.ID,
		admin:    adminClient,
		adminID:  adminID,
		member:   memberClient,
		memberID: memberID,
	}
}

func signupAndLogin(t *testing.T, base, orgID, name string) (*httpclient.Client, string) {
	t.Helper()
	anon := httpclient.New(base, "")
	email := name + "@integration.test"

	var created user
	resp, err := anon.PostJSON("/api/auth/signup", map[string]string{
		"name":           name,
		"email":          email,
		"password":       "integration-pw",
		"organizationId": orgID,
	}, &created)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup %s: %v status %v", name, err, status(resp))
	}

	var login struct {
		Token string `json:"token"`
		User  user   `json:"user"`
	}
	resp, err = anon.PostJSON("/api/auth/login", map[string]string{
		"email":    email,
		"password": "integration-pw",
	}, &login)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: %v status %v", name, err, status(resp))
	}
	return httpclient.New(base, login.Token), login.User.ID
}

func (tn *tenant) createProject(t *testing.T, name string) project {
	t.Helper()
	var p project
	resp, err := tn.admin.PostJSON("/api/projects", map[string]string{"name": name}, &p)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("create project: %v status %v", err, status(resp))
	}
	return p
}

func (tn *tenant) createTask(t *testing.T, projectID, title string, assignees []string) task {
	t.Helper()
	var tk task
	resp, err := tn.admin.PostJSON("/api/tasks", map[string]any{
		"title":      title,
		"projectId":  projectID,
		"assignedTo": assignees,
	}, &tk)
	if err != nil || resp.StatusCode != http.StatusCreated {
		t.Fatalf("create task: %v status %v", err, status(resp))
	}
	return tk
}

// pollNotifications polls the notification list until cond returns true or
// the deadline passes.
func pollNotifications(t *testing.T, client *httpclient.Client, cond func([]notification) bool) []notification {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		var list []notification
		_, err := client.GetJSON("/api/notifications", &list)
		if err == nil && cond(list) {
			return list
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for notifications, last error %v, last list %v", err, list)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func status(resp *http.Response) any {
	if resp == nil {
		return "<no response>"
	}
	return resp.StatusCode
}
