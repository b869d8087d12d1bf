package app

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"tracker-api/domain"
)

type broadcastRecord struct {
	Room    string
	Event   string
	Payload any
}

type recordingBroadcaster struct {
	mu      sync.Mutex
	records []broadcastRecord
}

func (r *recordingBroadcaster) Broadcast(room, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, broadcastRecord{Room: room, Event: event, Payload: payload})
}

func (r *recordingBroadcaster) byEvent(event string) []broadcastRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []broadcastRecord
	for _, rec := range r.records {
		if rec.Event == event {
			out = append(out, rec)
		}
	}
	return out
}

// newTestService wires a Service to the given store with a deterministic
// clock and id sequence.
func newTestService(store *memStore) (*Service, *recordingBroadcaster) {
	broadcast := &recordingBroadcaster{}
	svc := NewService(store, broadcast, log.New())

	var mu sync.Mutex
	seq := 0
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}
	svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		seq++
		return base.Add(time.Duration(seq) * time.Second)
	}
	return svc, broadcast
}

func seedUser(t *testing.T, store *memStore, id, org string, role domain.Role) domain.Caller {
	t.Helper()
	user := domain.User{
		ID:             id,
		Name:           id,
		Email:          id + "@example.com",
		OrganizationID: org,
		Role:           role,
	}
	if _, err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user %s: %v", id, err)
	}
	return user.Caller()
}

func seedProject(t *testing.T, store *memStore, id, org string) domain.Project {
	t.Helper()
	project := domain.Project{ID: id, Name: "Project " + id, OrganizationID: org}
	if _, err := store.CreateProject(context.Background(), project); err != nil {
		t.Fatalf("seed project %s: %v", id, err)
	}
	return project
}

func seedTask(t *testing.T, store *memStore, task domain.Task) domain.Task {
	t.Helper()
	if task.Status == "" {
		task.Status = domain.StatusTodo
	}
	if task.Priority == "" {
		task.Priority = domain.PriorityMedium
	}
	created, err := store.CreateTask(context.Background(), task)
	if err != nil {
		t.Fatalf("seed task %s: %v", task.ID, err)
	}
	return created
}
