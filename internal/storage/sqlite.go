package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// Pure-Go SQLite driver.
	_ "modernc.org/sqlite"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	path string
	db   *sql.DB

	organizations *sqliteOrgRepo
	users         *sqliteUserRepo
	channels      *sqliteChannelRepo
	alerts        *sqliteAlertRepo
	heartbeats    *sqliteHeartbeatRepo
	notifications *sqliteNotificationRepo
	tasks         *sqliteTaskRepo
}

// NewSQLiteStorage creates a new SQLite storage.
func NewSQLiteStorage(path string) *SQLiteStorage {
	return &SQLiteStorage{path: path}
}

// Open initializes the database connection.
func (s *SQLiteStorage) Open() error {
	ctx := context.Background()

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	s.db = db

	s.organizations = &sqliteOrgRepo{db: db}
	s.users = &sqliteUserRepo{db: db}
	s.channels = &sqliteChannelRepo{db: db}
	s.alerts = &sqliteAlertRepo{db: db}
	s.heartbeats = &sqliteHeartbeatRepo{db: db}
	s.notifications = &sqliteNotificationRepo{db: db}
	s.tasks = &sqliteTaskRepo{db: db}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database connection for health checks.
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

// Migrate runs database migrations.
func (s *SQLiteStorage) Migrate() error {
	return runMigrations(s.db)
}

// Organizations returns the organization repository.
func (s *SQLiteStorage) Organizations() OrganizationRepository {
	return s.organizations
}

// Users returns the user repository.
func (s *SQLiteStorage) Users() UserRepository {
	return s.users
}

// Channels returns the channel repository.
func (s *SQLiteStorage) Channels() ChannelRepository {
	return s.channels
}

// Alerts returns the alert repository.
func (s *SQLiteStorage) Alerts() AlertRepository {
	return s.alerts
}

// Heartbeats returns the heartbeat repository.
func (s *SQLiteStorage) Heartbeats() HeartbeatRepository {
	return s.heartbeats
}

// Notifications returns the notification repository.
func (s *SQLiteStorage) Notifications() NotificationRepository {
	return s.notifications
}

// Tasks returns the scheduled task repository.
func (s *SQLiteStorage) Tasks() TaskRepository {
	return s.tasks
}

// isUniqueViolation reports whether err is a SQLite unique constraint error.
// The modernc driver exposes no typed error for this, so match the message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
