package heartbeat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/good-yellow-bee/oncall/internal/models"
	"github.com/good-yellow-bee/oncall/internal/queue"
	"github.com/good-yellow-bee/oncall/internal/storage"
)

type mockHeartbeatRepo struct {
	byID map[string]*models.Heartbeat
}

func newMockHeartbeatRepo() *mockHeartbeatRepo {
	return &mockHeartbeatRepo{byID: make(map[string]*models.Heartbeat)}
}

func (m *mockHeartbeatRepo) find(channelID, userDefinedID string) *models.Heartbeat {
	for _, hb := range m.byID {
		if hb.ChannelID == channelID && hb.UserDefinedID == userDefinedID {
			return hb
		}
	}
	return nil
}

func (m *mockHeartbeatRepo) Create(ctx context.Context, hb *models.Heartbeat) error {
	if m.find(hb.ChannelID, hb.UserDefinedID) != nil {
		return storage.ErrDuplicate
	}
	clone := *hb
	m.byID[hb.ID] = &clone
	return nil
}

func (m *mockHeartbeatRepo) GetByID(ctx context.Context, id string) (*models.Heartbeat, error) {
	hb, ok := m.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	clone := *hb
	return &clone, nil
}

func (m *mockHeartbeatRepo) Get(ctx context.Context, channelID, userDefinedID string) (*models.Heartbeat, error) {
	hb := m.find(channelID, userDefinedID)
	if hb == nil {
		return nil, storage.ErrNotFound
	}
	clone := *hb
	return &clone, nil
}

func (m *mockHeartbeatRepo) Delete(ctx context.Context, channelID, userDefinedID string) error {
	hb := m.find(channelID, userDefinedID)
	if hb == nil {
		return storage.ErrNotFound
	}
	delete(m.byID, hb.ID)
	return nil
}

func (m *mockHeartbeatRepo) ListByChannel(ctx context.Context, channelID string) ([]*models.Heartbeat, error) {
	var out []*models.Heartbeat
	for _, hb := range m.byID {
		if hb.ChannelID == channelID {
			clone := *hb
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (m *mockHeartbeatRepo) SetCheckTask(ctx context.Context, id, taskID string) error {
	hb, ok := m.byID[id]
	if !ok {
		return storage.ErrNotFound
	}
	hb.LastCheckTaskID = taskID
	return nil
}

func (m *mockHeartbeatRepo) Reschedule(ctx context.Context, channelID, userDefinedID, taskID string, signalAt time.Time) (*models.Heartbeat, error) {
	hb := m.find(channelID, userDefinedID)
	if hb == nil {
		return nil, storage.ErrNotFound
	}
	prev := *hb
	hb.LastSignalAt = signalAt
	hb.LastCheckTaskID = taskID
	hb.Alive = true
	return &prev, nil
}

func (m *mockHeartbeatRepo) MarkDead(ctx context.Context, id, taskID string) (bool, error) {
	hb, ok := m.byID[id]
	if !ok {
		return false, nil
	}
	if hb.LastCheckTaskID != taskID || !hb.Alive {
		return false, nil
	}
	hb.Alive = false
	return true, nil
}

type submitted struct {
	task  queue.Task
	delay time.Duration
}

type mockSubmitter struct {
	calls []submitted
	err   error
}

func (m *mockSubmitter) Submit(ctx context.Context, task queue.Task, delay time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, submitted{task: task, delay: delay})
	return nil
}

func (m *mockSubmitter) alerts(t *testing.T) []*models.Alert {
	t.Helper()
	var out []*models.Alert
	for _, call := range m.calls {
		if call.task.Kind != queue.KindCreateAlert {
			continue
		}
		var payload queue.CreateAlertPayload
		if err := queue.DecodePayload(call.task, &payload); err != nil {
			t.Fatalf("decode alert payload: %v", err)
		}
		out = append(out, payload.Alert)
	}
	return out
}

func newTestMonitor() (*Monitor, *mockHeartbeatRepo, *mockSubmitter) {
	repo := newMockHeartbeatRepo()
	sub := &mockSubmitter{}
	return NewMonitor(repo, sub), repo, sub
}

func TestActivateSchedulesCheck(t *testing.T) {
	m, repo, sub := newTestMonitor()

	hb, err := m.Activate(context.Background(), "ch1", "web-cron", 300, "cron stopped", "check the box", "https://wiki/cron")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}

	if len(sub.calls) != 1 {
		t.Fatalf("submitted = %d tasks, want 1", len(sub.calls))
	}
	call := sub.calls[0]
	if call.task.Kind != queue.KindHeartbeatCheck {
		t.Errorf("kind = %q, want %q", call.task.Kind, queue.KindHeartbeatCheck)
	}
	if call.delay != 300*time.Second {
		t.Errorf("delay = %v, want 300s", call.delay)
	}

	var payload queue.HeartbeatCheckPayload
	if err := queue.DecodePayload(call.task, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.HeartbeatID != hb.ID {
		t.Errorf("payload heartbeat id = %q, want %q", payload.HeartbeatID, hb.ID)
	}
	if payload.TaskID != call.task.ID {
		t.Errorf("payload task id = %q, want the queue task id %q", payload.TaskID, call.task.ID)
	}

	stored, err := repo.GetByID(context.Background(), hb.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.LastCheckTaskID != call.task.ID {
		t.Errorf("stored check task id = %q, want %q", stored.LastCheckTaskID, call.task.ID)
	}
	if !stored.Alive {
		t.Error("new heartbeat must start alive")
	}
}

func TestActivateDuplicateID(t *testing.T) {
	m, _, _ := newTestMonitor()

	if _, err := m.Activate(context.Background(), "ch1", "web", 60, "", "", ""); err != nil {
		t.Fatalf("first activate: %v", err)
	}
	if _, err := m.Activate(context.Background(), "ch1", "web", 60, "", "", ""); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("err = %v, want ErrDuplicateID", err)
	}

	// Same id on another channel is fine.
	if _, err := m.Activate(context.Background(), "ch2", "web", 60, "", "", ""); err != nil {
		t.Fatalf("activate on second channel: %v", err)
	}
}

func TestActivateRejectsBadTimeout(t *testing.T) {
	m, _, _ := newTestMonitor()

	for _, timeout := range []int{0, -5} {
		if _, err := m.Activate(context.Background(), "ch1", "web", timeout, "", "", ""); !errors.Is(err, ErrInvalidTimeout) {
			t.Errorf("timeout %d: err = %v, want ErrInvalidTimeout", timeout, err)
		}
	}
}

func TestCheckExpirationMarksDeadAndAlertsOnce(t *testing.T) {
	m, repo, sub := newTestMonitor()
	start := time.Now()
	m.now = func() time.Time { return start }

	hb, err := m.Activate(context.Background(), "ch1", "web", 300, "web is down", "restart it", "https://wiki/web")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	checkTaskID := repoTaskID(t, repo, hb.ID)

	// Fires one second past the deadline with no signal in between.
	m.now = func() time.Time { return start.Add(301 * time.Second) }
	if err := m.CheckExpiration(context.Background(), hb.ID, checkTaskID); err != nil {
		t.Fatalf("check: %v", err)
	}

	stored, _ := repo.GetByID(context.Background(), hb.ID)
	if stored.Alive {
		t.Fatal("record must be dead after an expired check")
	}
	alerts := sub.alerts(t)
	if len(alerts) != 1 {
		t.Fatalf("alerts = %d, want exactly 1", len(alerts))
	}
	alert := alerts[0]
	if alert.ChannelID != "ch1" {
		t.Errorf("alert channel = %q", alert.ChannelID)
	}
	if alert.Title == nil || *alert.Title != "web is down" {
		t.Errorf("alert title = %v, want record title", alert.Title)
	}
	if alert.Message == nil || *alert.Message != "restart it" {
		t.Errorf("alert message = %v, want record message", alert.Message)
	}
	if alert.LinkToUpstream == nil || *alert.LinkToUpstream != "https://wiki/web" {
		t.Errorf("alert link = %v, want record link", alert.LinkToUpstream)
	}

	// A redelivered duplicate of the same check must not alert again.
	if err := m.CheckExpiration(context.Background(), hb.ID, checkTaskID); err != nil {
		t.Fatalf("duplicate check: %v", err)
	}
	if got := len(sub.alerts(t)); got != 1 {
		t.Fatalf("alerts after duplicate check = %d, want 1", got)
	}
}

func TestCheckExpirationStaleAfterSignal(t *testing.T) {
	m, repo, sub := newTestMonitor()
	start := time.Now()
	m.now = func() time.Time { return start }

	hb, err := m.Activate(context.Background(), "ch1", "web", 300, "", "", "")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	oldTaskID := repoTaskID(t, repo, hb.ID)

	// Signal at t=250 supersedes the pending check.
	m.now = func() time.Time { return start.Add(250 * time.Second) }
	if err := m.Signal(context.Background(), "ch1", "web"); err != nil {
		t.Fatalf("signal: %v", err)
	}

	// The original check fires at t=301; it must no-op.
	m.now = func() time.Time { return start.Add(301 * time.Second) }
	if err := m.CheckExpiration(context.Background(), hb.ID, oldTaskID); err != nil {
		t.Fatalf("stale check: %v", err)
	}

	stored, _ := repo.GetByID(context.Background(), hb.ID)
	if !stored.Alive {
		t.Fatal("record must stay alive after a stale check")
	}
	if got := len(sub.alerts(t)); got != 0 {
		t.Fatalf("alerts = %d, want 0", got)
	}
}

func TestSignalReschedulesCheck(t *testing.T) {
	m, repo, sub := newTestMonitor()

	hb, err := m.Activate(context.Background(), "ch1", "web", 120, "", "", "")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	oldTaskID := repoTaskID(t, repo, hb.ID)

	if err := m.Signal(context.Background(), "ch1", "web"); err != nil {
		t.Fatalf("signal: %v", err)
	}

	newTaskID := repoTaskID(t, repo, hb.ID)
	if newTaskID == oldTaskID {
		t.Fatal("signal must replace the stored check task id")
	}
	last := sub.calls[len(sub.calls)-1]
	if last.task.Kind != queue.KindHeartbeatCheck {
		t.Fatalf("last task kind = %q", last.task.Kind)
	}
	if last.delay != 120*time.Second {
		t.Errorf("delay = %v, want the record timeout", last.delay)
	}
	if last.task.ID != newTaskID {
		t.Errorf("scheduled task id = %q, stored = %q", last.task.ID, newTaskID)
	}
}

func TestSignalOnDeadRecordEmitsRecovery(t *testing.T) {
	m, repo, sub := newTestMonitor()
	start := time.Now()
	m.now = func() time.Time { return start }

	hb, err := m.Activate(context.Background(), "ch1", "web", 60, "web is down", "", "")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	checkTaskID := repoTaskID(t, repo, hb.ID)

	m.now = func() time.Time { return start.Add(61 * time.Second) }
	if err := m.CheckExpiration(context.Background(), hb.ID, checkTaskID); err != nil {
		t.Fatalf("check: %v", err)
	}
	if got := len(sub.alerts(t)); got != 1 {
		t.Fatalf("missed alerts = %d, want 1", got)
	}

	if err := m.Signal(context.Background(), "ch1", "web"); err != nil {
		t.Fatalf("signal: %v", err)
	}

	stored, _ := repo.GetByID(context.Background(), hb.ID)
	if !stored.Alive {
		t.Fatal("record must be alive again after the signal")
	}
	alerts := sub.alerts(t)
	if len(alerts) != 2 {
		t.Fatalf("alerts = %d, want missed + recovery", len(alerts))
	}
	recovery := alerts[1]
	if recovery.Title == nil || !strings.HasPrefix(*recovery.Title, "[RESOLVED]") {
		t.Errorf("recovery title = %v", recovery.Title)
	}

	// A second signal on the now-alive record stays quiet.
	if err := m.Signal(context.Background(), "ch1", "web"); err != nil {
		t.Fatalf("second signal: %v", err)
	}
	if got := len(sub.alerts(t)); got != 2 {
		t.Fatalf("alerts after healthy signal = %d, want 2", got)
	}
}

func TestSignalUnknownHeartbeat(t *testing.T) {
	m, _, _ := newTestMonitor()
	if err := m.Signal(context.Background(), "ch1", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeactivateThenCheckIsNoop(t *testing.T) {
	m, repo, sub := newTestMonitor()

	hb, err := m.Activate(context.Background(), "ch1", "web", 60, "", "", "")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	checkTaskID := repoTaskID(t, repo, hb.ID)

	if err := m.Deactivate(context.Background(), "ch1", "web"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if err := m.Deactivate(context.Background(), "ch1", "web"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second deactivate err = %v, want ErrNotFound", err)
	}

	// The already-scheduled check finds nothing and stays quiet.
	if err := m.CheckExpiration(context.Background(), hb.ID, checkTaskID); err != nil {
		t.Fatalf("check after deactivate: %v", err)
	}
	if got := len(sub.alerts(t)); got != 0 {
		t.Fatalf("alerts = %d, want 0", got)
	}
}

func TestListEntries(t *testing.T) {
	m, _, _ := newTestMonitor()
	start := time.Now()
	m.now = func() time.Time { return start }

	if _, err := m.Activate(context.Background(), "ch1", "web", 300, "web is down", "restart", "https://wiki"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := m.Activate(context.Background(), "ch2", "other", 60, "", "", ""); err != nil {
		t.Fatalf("activate other channel: %v", err)
	}

	m.now = func() time.Time { return start.Add(301 * time.Second) }
	entries, err := m.List(context.Background(), "ch1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.ID != "web" || e.Title != "web is down" || e.TimeoutSeconds != 300 {
		t.Errorf("entry = %+v", e)
	}
	if !e.IsExpired {
		t.Error("entry must report expired past the deadline")
	}
	if want := e.LastHeartbeat.Add(300 * time.Second); !e.ExpirationTime.Equal(want) {
		t.Errorf("expiration = %v, want last signal + timeout", e.ExpirationTime)
	}
}

func repoTaskID(t *testing.T, repo *mockHeartbeatRepo, id string) string {
	t.Helper()
	hb, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get heartbeat: %v", err)
	}
	return hb.LastCheckTaskID
}
