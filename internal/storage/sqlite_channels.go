package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/oncall/internal/models"
)

type sqliteChannelRepo struct {
	db *sql.DB
}

const channelColumns = `id, org_id, token, integration, name, slug, allow_unlimited, created_at`

func (r *sqliteChannelRepo) Create(ctx context.Context, ch *models.Channel) error {
	query := `
		INSERT INTO channels (id, org_id, token, integration, name, slug, allow_unlimited, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		ch.ID, ch.OrgID, ch.Token, ch.Integration, ch.Name,
		nullString(ch.Slug), boolToInt(ch.AllowUnlimited), ch.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert channel: %w", err)
	}
	return nil
}

func (r *sqliteChannelRepo) GetByID(ctx context.Context, id string) (*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE id = ?`
	return scanChannel(r.db.QueryRowContext(ctx, query, id))
}

func (r *sqliteChannelRepo) GetByToken(ctx context.Context, token string) (*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE token = ?`
	return scanChannel(r.db.QueryRowContext(ctx, query, token))
}

func (r *sqliteChannelRepo) List(ctx context.Context) ([]*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels ORDER BY created_at`
	return r.queryChannels(ctx, query)
}

func (r *sqliteChannelRepo) ListByOrg(ctx context.Context, orgID string) ([]*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE org_id = ? ORDER BY created_at`
	return r.queryChannels(ctx, query, orgID)
}

func (r *sqliteChannelRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM channels WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteChannelRepo) SetAllowUnlimited(ctx context.Context, id string, allow bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE channels SET allow_unlimited = ? WHERE id = ?",
		boolToInt(allow), id,
	)
	if err != nil {
		return fmt.Errorf("set channel allow_unlimited: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteChannelRepo) queryChannels(ctx context.Context, query string, args ...interface{}) ([]*models.Channel, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	var channels []*models.Channel
	for rows.Next() {
		ch, err := scanChannelRow(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func scanChannel(row *sql.Row) (*models.Channel, error) {
	ch := &models.Channel{}
	var slug sql.NullString
	var integration string
	var allowUnlimited int

	err := row.Scan(&ch.ID, &ch.OrgID, &ch.Token, &integration, &ch.Name,
		&slug, &allowUnlimited, &ch.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan channel: %w", err)
	}

	ch.Integration = models.Integration(integration)
	ch.Slug = slug.String
	ch.AllowUnlimited = allowUnlimited != 0
	return ch, nil
}

func scanChannelRow(rows *sql.Rows) (*models.Channel, error) {
	ch := &models.Channel{}
	var slug sql.NullString
	var integration string
	var allowUnlimited int

	err := rows.Scan(&ch.ID, &ch.OrgID, &ch.Token, &integration, &ch.Name,
		&slug, &allowUnlimited, &ch.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan channel: %w", err)
	}

	ch.Integration = models.Integration(integration)
	ch.Slug = slug.String
	ch.AllowUnlimited = allowUnlimited != 0
	return ch, nil
}
