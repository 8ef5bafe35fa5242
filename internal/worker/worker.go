// Package worker executes queued tasks: alert persistence and the heartbeat
// state machine's deferred work.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/oncall/internal/heartbeat"
	"github.com/good-yellow-bee/oncall/internal/metrics"
	"github.com/good-yellow-bee/oncall/internal/models"
	"github.com/good-yellow-bee/oncall/internal/queue"
	"github.com/good-yellow-bee/oncall/internal/storage"
)

// Worker dispatches consumed queue tasks to their implementations.
type Worker struct {
	alerts  storage.AlertRepository
	monitor *heartbeat.Monitor
}

// New creates a worker over the alert store and heartbeat monitor.
func New(alerts storage.AlertRepository, monitor *heartbeat.Monitor) *Worker {
	return &Worker{alerts: alerts, monitor: monitor}
}

// Handle processes one task. Returned errors trigger queue redelivery, so
// terminal conditions (unknown kinds, missing records) are logged and
// swallowed instead.
func (w *Worker) Handle(ctx context.Context, task queue.Task) error {
	start := time.Now()
	err := w.dispatch(ctx, task)

	kind := string(task.Kind)
	metrics.TaskProcessDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TasksProcessedTotal.WithLabelValues(kind, "error").Inc()
	} else {
		metrics.TasksProcessedTotal.WithLabelValues(kind, "ok").Inc()
	}
	return err
}

func (w *Worker) dispatch(ctx context.Context, task queue.Task) error {
	switch task.Kind {
	case queue.KindCreateAlert:
		return w.createAlert(ctx, task)
	case queue.KindHeartbeatCheck:
		return w.heartbeatCheck(ctx, task)
	case queue.KindHeartbeatProcess:
		return w.heartbeatProcess(ctx, task)
	default:
		log.Printf("worker: dropping task %s with unknown kind %q", task.ID, task.Kind)
		return nil
	}
}

// createAlert persists the canonical alert. Persisted rows are the handoff
// point to the alert-group subsystem.
func (w *Worker) createAlert(ctx context.Context, task queue.Task) error {
	var payload queue.CreateAlertPayload
	if err := queue.DecodePayload(task, &payload); err != nil {
		log.Printf("worker: dropping task %s: %v", task.ID, err)
		return nil
	}
	if payload.Alert == nil {
		log.Printf("worker: dropping task %s: empty alert payload", task.ID)
		return nil
	}

	alert := payload.Alert
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}

	if err := w.alerts.Create(ctx, alert); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			// Queue redelivery of an already-persisted alert.
			log.Printf("worker: alert %s already persisted, skipping", alert.ID)
			return nil
		}
		return fmt.Errorf("persist alert: %w", err)
	}

	metrics.AlertsCreatedTotal.WithLabelValues(channelLabel(alert)).Inc()
	return nil
}

func (w *Worker) heartbeatCheck(ctx context.Context, task queue.Task) error {
	var payload queue.HeartbeatCheckPayload
	if err := queue.DecodePayload(task, &payload); err != nil {
		log.Printf("worker: dropping task %s: %v", task.ID, err)
		return nil
	}
	return w.monitor.CheckExpiration(ctx, payload.HeartbeatID, payload.TaskID)
}

func (w *Worker) heartbeatProcess(ctx context.Context, task queue.Task) error {
	var payload queue.HeartbeatProcessPayload
	if err := queue.DecodePayload(task, &payload); err != nil {
		log.Printf("worker: dropping task %s: %v", task.ID, err)
		return nil
	}

	err := w.monitor.Signal(ctx, payload.ChannelID, payload.UserDefinedID)
	if errors.Is(err, heartbeat.ErrNotFound) {
		// Fire-and-forget ping for a record that was never activated.
		log.Printf("worker: heartbeat signal for unknown record %s/%s", payload.ChannelID, payload.UserDefinedID)
		return nil
	}
	return err
}

func channelLabel(alert *models.Alert) string {
	if alert.ChannelID == "" {
		return "unknown"
	}
	return alert.ChannelID
}
