package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/good-yellow-bee/oncall/internal/models"
)

type sqliteNotificationRepo struct {
	db *sql.DB
}

func (r *sqliteNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, org_id, user_id, kind, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, n.ID, n.OrgID, n.UserID, n.Kind, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *sqliteNotificationRepo) CountSince(ctx context.Context, orgID, userID string, kinds []models.NotificationKind, since time.Time) (int64, error) {
	if len(kinds) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?, ", len(kinds)-1) + "?"
	query := `
		SELECT COUNT(*) FROM notifications
		WHERE org_id = ? AND user_id = ? AND created_at >= ? AND kind IN (` + placeholders + `)
	`
	args := []interface{}{orgID, userID, since}
	for _, k := range kinds {
		args = append(args, string(k))
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}
