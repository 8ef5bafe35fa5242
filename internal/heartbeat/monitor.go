// Package heartbeat tracks liveness of external monitored systems. Each
// record is a contract: the system must signal within its timeout or a
// missed-heartbeat alert is emitted into the ingestion pipeline.
package heartbeat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/oncall/internal/metrics"
	"github.com/good-yellow-bee/oncall/internal/models"
	"github.com/good-yellow-bee/oncall/internal/queue"
	"github.com/good-yellow-bee/oncall/internal/storage"
)

// Errors reported to the ingestion layer.
var (
	// ErrDuplicateID is returned when activating an id that already exists
	// on the channel.
	ErrDuplicateID = errors.New("heartbeat id should be unique")
	// ErrNotFound is returned for operations on an unknown heartbeat.
	ErrNotFound = errors.New("heartbeat not found")
	// ErrInvalidTimeout is returned for a missing or non-positive timeout.
	ErrInvalidTimeout = errors.New("timeout_seconds int expected")
)

// Monitor owns the heartbeat state machine. Expiration checks run as
// deferred queue tasks; a fresh signal supersedes the pending check by
// replacing the stored task id, so a stale check no-ops when it fires.
type Monitor struct {
	heartbeats storage.HeartbeatRepository
	submitter  queue.Submitter
	now        func() time.Time
}

// NewMonitor creates a Monitor over the given repository and task queue.
func NewMonitor(heartbeats storage.HeartbeatRepository, submitter queue.Submitter) *Monitor {
	return &Monitor{
		heartbeats: heartbeats,
		submitter:  submitter,
		now:        time.Now,
	}
}

// Activate creates a heartbeat record and schedules its first expiration
// check at now + timeout.
func (m *Monitor) Activate(ctx context.Context, channelID, userDefinedID string, timeoutSeconds int, title, message, link string) (*models.Heartbeat, error) {
	if timeoutSeconds <= 0 {
		return nil, ErrInvalidTimeout
	}

	now := m.now()
	hb := &models.Heartbeat{
		ID:              uuid.New().String(),
		ChannelID:       channelID,
		UserDefinedID:   userDefinedID,
		TimeoutSeconds:  timeoutSeconds,
		Title:           title,
		Message:         message,
		Link:            link,
		LastSignalAt:    now,
		LastCheckTaskID: "none",
		Alive:           true,
		CreatedAt:       now,
	}

	if err := m.heartbeats.Create(ctx, hb); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrDuplicateID
		}
		return nil, fmt.Errorf("create heartbeat: %w", err)
	}

	task, err := newCheckTask(hb.ID)
	if err != nil {
		return nil, err
	}
	if err := m.submitter.Submit(ctx, task, hb.Timeout()); err != nil {
		return nil, fmt.Errorf("schedule expiration check: %w", err)
	}
	if err := m.heartbeats.SetCheckTask(ctx, hb.ID, task.ID); err != nil {
		return nil, fmt.Errorf("store check task id: %w", err)
	}

	hb.LastCheckTaskID = task.ID
	return hb, nil
}

// Deactivate deletes a heartbeat record; its pending check then no-ops.
func (m *Monitor) Deactivate(ctx context.Context, channelID, userDefinedID string) error {
	err := m.heartbeats.Delete(ctx, channelID, userDefinedID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// Signal records a liveness ping: updates the signal time, supersedes the
// pending expiration check, and emits a recovery alert when the record was
// dead.
func (m *Monitor) Signal(ctx context.Context, channelID, userDefinedID string) error {
	task, err := newCheckTask("")
	if err != nil {
		return err
	}

	prev, err := m.heartbeats.Reschedule(ctx, channelID, userDefinedID, task.ID, m.now())
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	// The task was built before the record id was known; bind it now.
	task, err = checkTaskFor(prev.ID, task.ID)
	if err != nil {
		return err
	}
	if err := m.submitter.Submit(ctx, task, prev.Timeout()); err != nil {
		return fmt.Errorf("schedule expiration check: %w", err)
	}

	metrics.HeartbeatSignals.Inc()

	if !prev.Alive {
		if err := m.emitAlert(ctx, prev, recoveredAlert(prev)); err != nil {
			return err
		}
	}
	return nil
}

// CheckExpiration is the deferred task body. It recomputes expiration at
// fire time and transitions the record to dead only when this invocation
// still owns the record's check slot.
func (m *Monitor) CheckExpiration(ctx context.Context, heartbeatID, taskID string) error {
	hb, err := m.heartbeats.GetByID(ctx, heartbeatID)
	if errors.Is(err, storage.ErrNotFound) {
		// Deactivated between scheduling and firing.
		return nil
	}
	if err != nil {
		return err
	}

	if hb.LastCheckTaskID != taskID {
		// A newer signal superseded this check.
		metrics.HeartbeatStaleChecks.Inc()
		return nil
	}
	if !hb.IsExpired(m.now()) || !hb.Alive {
		return nil
	}

	transitioned, err := m.heartbeats.MarkDead(ctx, hb.ID, taskID)
	if err != nil {
		return err
	}
	if !transitioned {
		metrics.HeartbeatStaleChecks.Inc()
		return nil
	}

	metrics.HeartbeatExpirations.Inc()
	return m.emitAlert(ctx, hb, missedAlert(hb))
}

// Entry is one row of the heartbeat list action.
type Entry struct {
	CreatedAt      time.Time `json:"created_at"`
	LastHeartbeat  time.Time `json:"last_heartbeat"`
	ExpirationTime time.Time `json:"expiration_time"`
	IsExpired      bool      `json:"is_expired"`
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	TimeoutSeconds int       `json:"timeout_seconds"`
	Link           string    `json:"link"`
	Message        string    `json:"message"`
}

// List returns the channel's heartbeat records.
func (m *Monitor) List(ctx context.Context, channelID string) ([]Entry, error) {
	heartbeats, err := m.heartbeats.ListByChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	entries := make([]Entry, 0, len(heartbeats))
	for _, hb := range heartbeats {
		entries = append(entries, Entry{
			CreatedAt:      hb.CreatedAt,
			LastHeartbeat:  hb.LastSignalAt,
			ExpirationTime: hb.ExpirationTime(),
			IsExpired:      hb.IsExpired(now),
			ID:             hb.UserDefinedID,
			Title:          hb.Title,
			TimeoutSeconds: hb.TimeoutSeconds,
			Link:           hb.Link,
			Message:        hb.Message,
		})
	}
	return entries, nil
}

// emitAlert pushes an alert for the heartbeat into the ingestion pipeline.
func (m *Monitor) emitAlert(ctx context.Context, hb *models.Heartbeat, alert *models.Alert) error {
	task, err := queue.NewTask(queue.KindCreateAlert, queue.CreateAlertPayload{Alert: alert})
	if err != nil {
		return err
	}
	if err := m.submitter.Submit(ctx, task, 0); err != nil {
		return fmt.Errorf("emit heartbeat alert: %w", err)
	}
	return nil
}

// missedAlert builds the alert emitted on the ALIVE -> DEAD edge,
// rendered from the user-supplied record fields.
func missedAlert(hb *models.Heartbeat) *models.Alert {
	alert := models.NewAlert(hb.ChannelID)
	title := hb.Title
	if title == "" {
		title = fmt.Sprintf("Heartbeat %s is missing", hb.UserDefinedID)
	}
	alert.Title = models.StringPtr(title)
	if hb.Message != "" {
		alert.Message = models.StringPtr(hb.Message)
	}
	if hb.Link != "" {
		alert.LinkToUpstream = models.StringPtr(hb.Link)
	}
	alert.SetRawPayload(map[string]string{
		"heartbeat_id": hb.UserDefinedID,
		"state":        "missing",
	})
	return alert
}

// recoveredAlert builds the alert emitted on the DEAD -> ALIVE edge.
func recoveredAlert(hb *models.Heartbeat) *models.Alert {
	alert := models.NewAlert(hb.ChannelID)
	title := hb.Title
	if title == "" {
		title = fmt.Sprintf("Heartbeat %s", hb.UserDefinedID)
	}
	alert.Title = models.StringPtr(fmt.Sprintf("[RESOLVED] %s", title))
	alert.Message = models.StringPtr("Heartbeat received after being reported missing.")
	if hb.Link != "" {
		alert.LinkToUpstream = models.StringPtr(hb.Link)
	}
	alert.SetRawPayload(map[string]string{
		"heartbeat_id": hb.UserDefinedID,
		"state":        "restored",
	})
	return alert
}

// newCheckTask builds an expiration-check task whose payload task id equals
// the queue task id, so the stored id and the fired task can be compared.
func newCheckTask(heartbeatID string) (queue.Task, error) {
	return checkTaskFor(heartbeatID, uuid.New().String())
}

func checkTaskFor(heartbeatID, taskID string) (queue.Task, error) {
	body, err := json.Marshal(queue.HeartbeatCheckPayload{
		HeartbeatID: heartbeatID,
		TaskID:      taskID,
	})
	if err != nil {
		return queue.Task{}, fmt.Errorf("marshal check payload: %w", err)
	}
	return queue.Task{
		ID:        taskID,
		Kind:      queue.KindHeartbeatCheck,
		Payload:   body,
		CreatedAt: time.Now(),
	}, nil
}
