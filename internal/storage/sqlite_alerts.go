package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/oncall/internal/models"
)

type sqliteAlertRepo struct {
	db *sql.DB
}

const alertColumns = `id, channel_id, title, message, image_url, link_to_upstream,
	integration_unique_data, raw_payload, created_at`

func (r *sqliteAlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (id, channel_id, title, message, image_url, link_to_upstream,
			integration_unique_data, raw_payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		alert.ID, alert.ChannelID, alert.Title, alert.Message, alert.ImageURL,
		alert.LinkToUpstream, nullString(alert.UniqueData), alert.RawPayload,
		alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *sqliteAlertRepo) GetByID(ctx context.Context, id string) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = ?`
	alert := &models.Alert{}
	var uniqueData sql.NullString

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&alert.ID, &alert.ChannelID, &alert.Title, &alert.Message, &alert.ImageURL,
		&alert.LinkToUpstream, &uniqueData, &alert.RawPayload, &alert.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}
	alert.UniqueData = uniqueData.String
	return alert, nil
}

func (r *sqliteAlertRepo) ListByChannel(ctx context.Context, channelID string, limit int) ([]*models.Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE channel_id = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert := &models.Alert{}
		var uniqueData sql.NullString
		err := rows.Scan(
			&alert.ID, &alert.ChannelID, &alert.Title, &alert.Message, &alert.ImageURL,
			&alert.LinkToUpstream, &uniqueData, &alert.RawPayload, &alert.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alert.UniqueData = uniqueData.String
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func (r *sqliteAlertRepo) CountByChannel(ctx context.Context, channelID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM alerts WHERE channel_id = ?", channelID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	return count, nil
}
