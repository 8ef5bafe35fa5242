package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Migration represents a database migration.
type Migration struct {
	Version int
	Name    string
	Up      string
}

// migrations holds all database migrations in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "initial_schema",
		Up: `
			-- Organizations (tenants)
			CREATE TABLE IF NOT EXISTS organizations (
				id TEXT PRIMARY KEY,
				name TEXT UNIQUE NOT NULL,
				subscription_plan TEXT NOT NULL DEFAULT 'free_public_beta',
				created_at DATETIME NOT NULL
			);

			-- Users (notification recipients)
			CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				org_id TEXT NOT NULL,
				username TEXT NOT NULL,
				email TEXT,
				created_at DATETIME NOT NULL,
				UNIQUE (org_id, username),
				FOREIGN KEY (org_id) REFERENCES organizations(id) ON DELETE CASCADE
			);

			-- Integration channels
			CREATE TABLE IF NOT EXISTS channels (
				id TEXT PRIMARY KEY,
				org_id TEXT NOT NULL,
				token TEXT UNIQUE NOT NULL,
				integration TEXT NOT NULL,
				name TEXT NOT NULL,
				slug TEXT,
				allow_unlimited INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (org_id) REFERENCES organizations(id) ON DELETE CASCADE
			);

			-- Canonical alerts (immutable once written)
			CREATE TABLE IF NOT EXISTS alerts (
				id TEXT PRIMARY KEY,
				channel_id TEXT NOT NULL,
				title TEXT,
				message TEXT,
				image_url TEXT,
				link_to_upstream TEXT,
				integration_unique_data TEXT,
				raw_payload TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (channel_id) REFERENCES channels(id) ON DELETE CASCADE
			);

			-- Heartbeat liveness records
			CREATE TABLE IF NOT EXISTS heartbeats (
				id TEXT PRIMARY KEY,
				channel_id TEXT NOT NULL,
				user_defined_id TEXT NOT NULL,
				timeout_seconds INTEGER NOT NULL,
				title TEXT,
				message TEXT,
				link TEXT,
				last_signal_at DATETIME NOT NULL,
				last_check_task_id TEXT NOT NULL DEFAULT 'none',
				alive INTEGER NOT NULL DEFAULT 1,
				created_at DATETIME NOT NULL,
				UNIQUE (channel_id, user_defined_id),
				FOREIGN KEY (channel_id) REFERENCES channels(id) ON DELETE CASCADE
			);

			-- Notification send records (quota accounting)
			CREATE TABLE IF NOT EXISTS notifications (
				id TEXT PRIMARY KEY,
				org_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				kind TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				FOREIGN KEY (org_id) REFERENCES organizations(id) ON DELETE CASCADE,
				FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
			);

			-- Deferred queue tasks awaiting their due time
			CREATE TABLE IF NOT EXISTS scheduled_tasks (
				id TEXT PRIMARY KEY,
				kind TEXT NOT NULL,
				payload BLOB NOT NULL,
				run_at DATETIME NOT NULL,
				created_at DATETIME NOT NULL
			);

			-- Indexes
			CREATE INDEX IF NOT EXISTS idx_channels_token ON channels(token);
			CREATE INDEX IF NOT EXISTS idx_channels_org ON channels(org_id);
			CREATE INDEX IF NOT EXISTS idx_alerts_channel ON alerts(channel_id);
			CREATE INDEX IF NOT EXISTS idx_heartbeats_channel ON heartbeats(channel_id);
			CREATE INDEX IF NOT EXISTS idx_notifications_user_day
				ON notifications(org_id, user_id, kind, created_at);
			CREATE INDEX IF NOT EXISTS idx_scheduled_tasks_run_at ON scheduled_tasks(run_at);
		`,
	},
}

// runMigrations applies all pending migrations.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.Up); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Name, time.Now(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}
