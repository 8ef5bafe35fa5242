package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/good-yellow-bee/oncall/internal/metrics"
	"github.com/good-yellow-bee/oncall/internal/models"
	"github.com/good-yellow-bee/oncall/internal/storage"
)

const defaultPollInterval = time.Second

// Scheduler is the Submitter implementation: immediate tasks go straight
// to the producer, delayed tasks are parked in the scheduled_tasks table
// until the poll loop publishes them. Parked tasks survive restarts.
type Scheduler struct {
	producer Producer
	tasks    storage.TaskRepository
	interval time.Duration
	now      func() time.Time
}

// NewScheduler creates a scheduler over the given producer and task store.
func NewScheduler(producer Producer, tasks storage.TaskRepository) *Scheduler {
	return &Scheduler{
		producer: producer,
		tasks:    tasks,
		interval: defaultPollInterval,
		now:      time.Now,
	}
}

// Submit enqueues a task, optionally delayed. Delay zero publishes
// immediately.
func (s *Scheduler) Submit(ctx context.Context, task Task, delay time.Duration) error {
	if delay <= 0 {
		return s.producer.Publish(ctx, task)
	}

	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal scheduled task: %w", err)
	}
	return s.tasks.Create(ctx, &models.ScheduledTask{
		ID:        task.ID,
		Kind:      string(task.Kind),
		Payload:   body,
		RunAt:     s.now().Add(delay),
		CreatedAt: s.now(),
	})
}

// Run polls for due tasks until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.publishDue(ctx); err != nil {
				log.Printf("scheduler: publish due tasks: %v", err)
			}
		}
	}
}

// publishDue publishes every due task, then removes it. Publish-then-delete
// means a crash between the two redelivers the task; the queue's message-id
// dedup and the heartbeat check's task-id CAS absorb the duplicate.
func (s *Scheduler) publishDue(ctx context.Context) error {
	due, err := s.tasks.Due(ctx, s.now(), 100)
	if err != nil {
		return err
	}

	for _, row := range due {
		var task Task
		if err := json.Unmarshal(row.Payload, &task); err != nil {
			log.Printf("scheduler: dropping undecodable task %s: %v", row.ID, err)
			if err := s.tasks.Delete(ctx, row.ID); err != nil {
				return err
			}
			continue
		}
		if err := s.producer.Publish(ctx, task); err != nil {
			return err
		}
		metrics.SchedulerDeliveryLag.Observe(s.now().Sub(row.RunAt).Seconds())
		if err := s.tasks.Delete(ctx, row.ID); err != nil {
			return err
		}
	}
	return nil
}
