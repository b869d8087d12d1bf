package app

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// mutationMetrics records stage timings for one task mutation request and
// emits a single structured log line when the request settles.
type mutationMetrics struct {
	logger *log.Logger
	start  time.Time

	taskID  string
	actorID string

	authorizeDuration time.Duration
	persistDuration   time.Duration
	notifyDuration    time.Duration

	fieldsRequested int
	notifications   int
	statusBroadcast bool
	rejectReason    string
}

func newMutationMetrics(logger *log.Logger, taskID, actorID string) *mutationMetrics {
	return &mutationMetrics{
		logger:  logger,
		start:   time.Now(),
		taskID:  taskID,
		actorID: actorID,
	}
}

func (m *mutationMetrics) ObserveAuthorize(d time.Duration) {
	if d > 0 {
		m.authorizeDuration = d
	}
}

func (m *mutationMetrics) ObservePersist(d time.Duration) {
	if d > 0 {
		m.persistDuration = d
	}
}

func (m *mutationMetrics) ObserveNotify(d time.Duration) {
	if d > 0 {
		m.notifyDuration = d
	}
}

func (m *mutationMetrics) SetFieldsRequested(n int) {
	if n > 0 {
		m.fieldsRequested = n
	}
}

func (m *mutationMetrics) SetNotifications(n int) {
	if n > 0 {
		m.notifications = n
	}
}

func (m *mutationMetrics) SetStatusBroadcast(fired bool) {
	m.statusBroadcast = fired
}

func (m *mutationMetrics) SetRejectReason(reason string) {
	if reason != "" {
		m.rejectReason = reason
	}
}

func (m *mutationMetrics) Log(err error) {
	if m == nil || m.logger == nil {
		return
	}

	fields := log.Fields{
		"task_id":          m.taskID,
		"actor_id":         m.actorID,
		"total_ms":         durationToMillis(time.Since(m.start)),
		"fields_requested": m.fieldsRequested,
		"notifications":    m.notifications,
		"status_broadcast": m.statusBroadcast,
	}
	if m.authorizeDuration > 0 {
		fields["authorize_ms"] = durationToMillis(m.authorizeDuration)
	}
	if m.persistDuration > 0 {
		fields["persist_ms"] = durationToMillis(m.persistDuration)
	}
	if m.notifyDuration > 0 {
		fields["notify_ms"] = durationToMillis(m.notifyDuration)
	}
	if m.rejectReason != "" {
		fields["reject_reason"] = m.rejectReason
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	m.logger.WithFields(fields).Info("task.mutation.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
