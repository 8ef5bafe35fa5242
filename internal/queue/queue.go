// Package queue provides the asynchronous task queue between the ingestion
// path and the processing workers. The synchronous request path only ever
// normalizes and enqueues; everything heavier runs on a consumer.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/oncall/internal/models"
)

// Kind identifies what a task does.
type Kind string

const (
	// KindCreateAlert persists a canonical alert and hands it to grouping.
	KindCreateAlert Kind = "create_alert"
	// KindHeartbeatCheck runs a deferred heartbeat expiration check.
	KindHeartbeatCheck Kind = "heartbeat_check"
	// KindHeartbeatProcess applies a received heartbeat signal.
	KindHeartbeatProcess Kind = "heartbeat_process"
)

// Task is one unit of asynchronous work.
type Task struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// CreateAlertPayload carries a canonical alert to the worker.
type CreateAlertPayload struct {
	Alert *models.Alert `json:"alert"`
}

// HeartbeatCheckPayload identifies one deferred expiration check. TaskID is
// compared against the record's stored check task id so a superseded check
// discovers it is stale.
type HeartbeatCheckPayload struct {
	HeartbeatID string `json:"heartbeat_id"`
	TaskID      string `json:"task_id"`
}

// HeartbeatProcessPayload carries a received signal to the worker.
type HeartbeatProcessPayload struct {
	ChannelID     string `json:"channel_id"`
	UserDefinedID string `json:"user_defined_id"`
}

// NewTask creates a task with a fresh id and a JSON-encoded payload.
func NewTask(kind Kind, payload interface{}) (Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Task{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return Task{
		ID:        uuid.New().String(),
		Kind:      kind,
		Payload:   body,
		CreatedAt: time.Now(),
	}, nil
}

// DecodePayload unmarshals the task payload into v.
func DecodePayload(task Task, v interface{}) error {
	if err := json.Unmarshal(task.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", task.Kind, err)
	}
	return nil
}

// Producer publishes tasks for immediate consumption.
type Producer interface {
	Publish(ctx context.Context, task Task) error
	Close() error
}

// Submitter accepts tasks with an optional delay before they become
// visible to consumers.
type Submitter interface {
	Submit(ctx context.Context, task Task, delay time.Duration) error
}

// Handler processes one consumed task. A returned error triggers
// redelivery by the queue.
type Handler func(ctx context.Context, task Task) error
