// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/good-yellow-bee/oncall/internal/models"
)

// Sentinel errors returned by repositories.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned on a uniqueness violation.
	ErrDuplicate = errors.New("duplicate record")
)

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error

	// Repository accessors
	Organizations() OrganizationRepository
	Users() UserRepository
	Channels() ChannelRepository
	Alerts() AlertRepository
	Heartbeats() HeartbeatRepository
	Notifications() NotificationRepository
	Tasks() TaskRepository
}

// OrganizationRepository defines operations for tenant management.
type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) error
	GetByID(ctx context.Context, id string) (*models.Organization, error)
	List(ctx context.Context) ([]*models.Organization, error)
}

// UserRepository defines operations for notification recipients.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, orgID, username string) (*models.User, error)
	ListByOrg(ctx context.Context, orgID string) ([]*models.User, error)
}

// ChannelRepository defines operations for integration channels.
type ChannelRepository interface {
	Create(ctx context.Context, ch *models.Channel) error
	GetByID(ctx context.Context, id string) (*models.Channel, error)
	// GetByToken resolves a channel by its secret integration key.
	GetByToken(ctx context.Context, token string) (*models.Channel, error)
	List(ctx context.Context) ([]*models.Channel, error)
	ListByOrg(ctx context.Context, orgID string) ([]*models.Channel, error)
	Delete(ctx context.Context, id string) error
	SetAllowUnlimited(ctx context.Context, id string, allow bool) error
}

// AlertRepository defines operations for persisted canonical alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, id string) (*models.Alert, error)
	ListByChannel(ctx context.Context, channelID string, limit int) ([]*models.Alert, error)
	CountByChannel(ctx context.Context, channelID string) (int64, error)
}

// HeartbeatRepository defines operations for heartbeat records.
//
// Reschedule and MarkDead carry the concurrency contract: a signal and its
// check-task replacement commit atomically, and the DEAD transition is a
// compare-and-swap on the stored check task id so a stale check can never
// fire after a newer signal superseded it.
type HeartbeatRepository interface {
	Create(ctx context.Context, hb *models.Heartbeat) error
	GetByID(ctx context.Context, id string) (*models.Heartbeat, error)
	Get(ctx context.Context, channelID, userDefinedID string) (*models.Heartbeat, error)
	Delete(ctx context.Context, channelID, userDefinedID string) error
	ListByChannel(ctx context.Context, channelID string) ([]*models.Heartbeat, error)
	// SetCheckTask stores the pending expiration-check task id.
	SetCheckTask(ctx context.Context, id, taskID string) error
	// Reschedule atomically records a fresh signal: updates last_signal_at,
	// replaces the check task id, and flips the record back to alive.
	// It returns the record state prior to the update.
	Reschedule(ctx context.Context, channelID, userDefinedID, taskID string, signalAt time.Time) (*models.Heartbeat, error)
	// MarkDead transitions the record to dead only if taskID still matches
	// the stored check task id and the record is alive. Returns true when
	// the transition happened.
	MarkDead(ctx context.Context, id, taskID string) (bool, error)
}

// NotificationRepository defines operations for notification-send records.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	// CountSince counts sends of the given kinds for a user within the
	// organization since the given instant.
	CountSince(ctx context.Context, orgID, userID string, kinds []models.NotificationKind, since time.Time) (int64, error)
}

// TaskRepository defines operations for deferred queue tasks.
type TaskRepository interface {
	Create(ctx context.Context, task *models.ScheduledTask) error
	// Due returns tasks whose run_at is at or before now, oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledTask, error)
	Delete(ctx context.Context, id string) error
}
