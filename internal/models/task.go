package models

import (
	"time"
)

// ScheduledTask is a queue task parked until its due time. The scheduler
// loop publishes due rows to the task queue and deletes them.
type ScheduledTask struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Payload   []byte    `json:"payload"`
	RunAt     time.Time `json:"run_at"`
	CreatedAt time.Time `json:"created_at"`
}
