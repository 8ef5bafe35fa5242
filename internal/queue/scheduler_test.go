package queue

import (
	"context"
	"testing"
	"time"

	"github.com/good-yellow-bee/oncall/internal/models"
	"github.com/good-yellow-bee/oncall/internal/storage"
)

type mockProducer struct {
	published []Task
	err       error
}

func (m *mockProducer) Publish(ctx context.Context, task Task) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, task)
	return nil
}

func (m *mockProducer) Close() error { return nil }

type mockTaskRepo struct {
	rows []*models.ScheduledTask
}

func (m *mockTaskRepo) Create(ctx context.Context, task *models.ScheduledTask) error {
	m.rows = append(m.rows, task)
	return nil
}

func (m *mockTaskRepo) Due(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledTask, error) {
	var due []*models.ScheduledTask
	for _, row := range m.rows {
		if !row.RunAt.After(now) {
			due = append(due, row)
		}
	}
	return due, nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, id string) error {
	for i, row := range m.rows {
		if row.ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func TestSubmitImmediatePublishesDirectly(t *testing.T) {
	producer := &mockProducer{}
	repo := &mockTaskRepo{}
	s := NewScheduler(producer, repo)

	task, err := NewTask(KindCreateAlert, CreateAlertPayload{})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := s.Submit(context.Background(), task, 0); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if len(producer.published) != 1 {
		t.Fatalf("published = %d, want 1", len(producer.published))
	}
	if len(repo.rows) != 0 {
		t.Errorf("immediate task must not be parked, got %d rows", len(repo.rows))
	}
}

func TestSubmitDelayedParksUntilDue(t *testing.T) {
	producer := &mockProducer{}
	repo := &mockTaskRepo{}
	s := NewScheduler(producer, repo)
	current := time.Now()
	s.now = func() time.Time { return current }

	task, _ := NewTask(KindHeartbeatCheck, HeartbeatCheckPayload{HeartbeatID: "hb1", TaskID: "t1"})
	if err := s.Submit(context.Background(), task, 300*time.Second); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if len(producer.published) != 0 {
		t.Fatal("delayed task must not publish immediately")
	}
	if len(repo.rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(repo.rows))
	}
	if got := repo.rows[0].RunAt; !got.Equal(current.Add(300 * time.Second)) {
		t.Errorf("run_at = %v, want now+300s", got)
	}

	// Not yet due.
	if err := s.publishDue(context.Background()); err != nil {
		t.Fatalf("publishDue: %v", err)
	}
	if len(producer.published) != 0 {
		t.Fatal("task published before its due time")
	}

	// Past due: published once, then removed.
	current = current.Add(301 * time.Second)
	if err := s.publishDue(context.Background()); err != nil {
		t.Fatalf("publishDue: %v", err)
	}
	if len(producer.published) != 1 {
		t.Fatalf("published = %d, want 1", len(producer.published))
	}
	if producer.published[0].ID != task.ID {
		t.Errorf("published task id = %q, want %q", producer.published[0].ID, task.ID)
	}
	if len(repo.rows) != 0 {
		t.Errorf("due task must be deleted after publish, got %d rows", len(repo.rows))
	}
}

func TestPublishDueKeepsRowOnPublishError(t *testing.T) {
	producer := &mockProducer{err: context.DeadlineExceeded}
	repo := &mockTaskRepo{}
	s := NewScheduler(producer, repo)

	task, _ := NewTask(KindHeartbeatCheck, HeartbeatCheckPayload{})
	if err := s.Submit(context.Background(), task, time.Millisecond); err != nil {
		t.Fatalf("submit: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if err := s.publishDue(context.Background()); err == nil {
		t.Fatal("expected publish error")
	}
	if len(repo.rows) != 1 {
		t.Error("row must survive a failed publish for retry")
	}
}

func TestNewTaskEncodesPayload(t *testing.T) {
	task, err := NewTask(KindHeartbeatProcess, HeartbeatProcessPayload{ChannelID: "ch1", UserDefinedID: "web"})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if task.ID == "" {
		t.Error("task id must be set")
	}
	if task.Kind != KindHeartbeatProcess {
		t.Errorf("kind = %q", task.Kind)
	}

	var payload HeartbeatProcessPayload
	if err := DecodePayload(task, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.ChannelID != "ch1" || payload.UserDefinedID != "web" {
		t.Errorf("payload = %+v", payload)
	}
}
