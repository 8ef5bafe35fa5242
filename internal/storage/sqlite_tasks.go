package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/oncall/internal/models"
)

type sqliteTaskRepo struct {
	db *sql.DB
}

func (r *sqliteTaskRepo) Create(ctx context.Context, task *models.ScheduledTask) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (id, kind, payload, run_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, task.ID, task.Kind, task.Payload, task.RunAt, task.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert scheduled task: %w", err)
	}
	return nil
}

func (r *sqliteTaskRepo) Due(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledTask, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, payload, run_at, created_at FROM scheduled_tasks
		WHERE run_at <= ? ORDER BY run_at LIMIT ?
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("query due tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.ScheduledTask
	for rows.Next() {
		task := &models.ScheduledTask{}
		if err := rows.Scan(&task.ID, &task.Kind, &task.Payload, &task.RunAt, &task.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan scheduled task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (r *sqliteTaskRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM scheduled_tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete scheduled task: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
