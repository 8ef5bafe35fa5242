package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/oncall/internal/models"
)

type sqliteHeartbeatRepo struct {
	db *sql.DB
}

const heartbeatColumns = `id, channel_id, user_defined_id, timeout_seconds, title, message,
	link, last_signal_at, last_check_task_id, alive, created_at`

func (r *sqliteHeartbeatRepo) Create(ctx context.Context, hb *models.Heartbeat) error {
	query := `
		INSERT INTO heartbeats (id, channel_id, user_defined_id, timeout_seconds, title,
			message, link, last_signal_at, last_check_task_id, alive, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		hb.ID, hb.ChannelID, hb.UserDefinedID, hb.TimeoutSeconds, hb.Title,
		hb.Message, hb.Link, hb.LastSignalAt, hb.LastCheckTaskID,
		boolToInt(hb.Alive), hb.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert heartbeat: %w", err)
	}
	return nil
}

func (r *sqliteHeartbeatRepo) GetByID(ctx context.Context, id string) (*models.Heartbeat, error) {
	query := `SELECT ` + heartbeatColumns + ` FROM heartbeats WHERE id = ?`
	return scanHeartbeat(r.db.QueryRowContext(ctx, query, id))
}

func (r *sqliteHeartbeatRepo) Get(ctx context.Context, channelID, userDefinedID string) (*models.Heartbeat, error) {
	query := `SELECT ` + heartbeatColumns + ` FROM heartbeats WHERE channel_id = ? AND user_defined_id = ?`
	return scanHeartbeat(r.db.QueryRowContext(ctx, query, channelID, userDefinedID))
}

func (r *sqliteHeartbeatRepo) Delete(ctx context.Context, channelID, userDefinedID string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM heartbeats WHERE channel_id = ? AND user_defined_id = ?",
		channelID, userDefinedID,
	)
	if err != nil {
		return fmt.Errorf("delete heartbeat: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteHeartbeatRepo) ListByChannel(ctx context.Context, channelID string) ([]*models.Heartbeat, error) {
	query := `SELECT ` + heartbeatColumns + ` FROM heartbeats WHERE channel_id = ? ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, channelID)
	if err != nil {
		return nil, fmt.Errorf("query heartbeats: %w", err)
	}
	defer rows.Close()

	var heartbeats []*models.Heartbeat
	for rows.Next() {
		hb, err := scanHeartbeatRow(rows)
		if err != nil {
			return nil, err
		}
		heartbeats = append(heartbeats, hb)
	}
	return heartbeats, rows.Err()
}

func (r *sqliteHeartbeatRepo) SetCheckTask(ctx context.Context, id, taskID string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE heartbeats SET last_check_task_id = ? WHERE id = ?",
		taskID, id,
	)
	if err != nil {
		return fmt.Errorf("set heartbeat check task: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Reschedule records a fresh signal inside a single transaction. The pool
// is capped at one connection, so the read-compute-write sequence is
// serialized against concurrent signals the way SELECT ... FOR UPDATE
// would be on a row-locking store.
func (r *sqliteHeartbeatRepo) Reschedule(ctx context.Context, channelID, userDefinedID, taskID string, signalAt time.Time) (*models.Heartbeat, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reschedule: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + heartbeatColumns + ` FROM heartbeats WHERE channel_id = ? AND user_defined_id = ?`
	prev, err := scanHeartbeat(tx.QueryRowContext(ctx, query, channelID, userDefinedID))
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE heartbeats
		SET last_signal_at = ?, last_check_task_id = ?, alive = 1
		WHERE id = ?
	`, signalAt, taskID, prev.ID)
	if err != nil {
		return nil, fmt.Errorf("update heartbeat signal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reschedule: %w", err)
	}
	return prev, nil
}

// MarkDead is the optimistic compare-and-swap half of the stale-check
// protection: the transition only happens while the caller's task id is
// still the current one.
func (r *sqliteHeartbeatRepo) MarkDead(ctx context.Context, id, taskID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE heartbeats SET alive = 0
		WHERE id = ? AND last_check_task_id = ? AND alive = 1
	`, id, taskID)
	if err != nil {
		return false, fmt.Errorf("mark heartbeat dead: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows == 1, nil
}

func scanHeartbeat(row *sql.Row) (*models.Heartbeat, error) {
	hb := &models.Heartbeat{}
	var alive int
	var title, message, link sql.NullString

	err := row.Scan(&hb.ID, &hb.ChannelID, &hb.UserDefinedID, &hb.TimeoutSeconds,
		&title, &message, &link, &hb.LastSignalAt, &hb.LastCheckTaskID,
		&alive, &hb.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan heartbeat: %w", err)
	}

	hb.Title = title.String
	hb.Message = message.String
	hb.Link = link.String
	hb.Alive = alive != 0
	return hb, nil
}

func scanHeartbeatRow(rows *sql.Rows) (*models.Heartbeat, error) {
	hb := &models.Heartbeat{}
	var alive int
	var title, message, link sql.NullString

	err := rows.Scan(&hb.ID, &hb.ChannelID, &hb.UserDefinedID, &hb.TimeoutSeconds,
		&title, &message, &link, &hb.LastSignalAt, &hb.LastCheckTaskID,
		&alive, &hb.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan heartbeat: %w", err)
	}

	hb.Title = title.String
	hb.Message = message.String
	hb.Link = link.String
	hb.Alive = alive != 0
	return hb, nil
}
