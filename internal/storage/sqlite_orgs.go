package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/oncall/internal/models"
)

type sqliteOrgRepo struct {
	db *sql.DB
}

func (r *sqliteOrgRepo) Create(ctx context.Context, org *models.Organization) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, subscription_plan, created_at)
		VALUES (?, ?, ?, ?)
	`, org.ID, org.Name, org.Plan, org.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

func (r *sqliteOrgRepo) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	org := &models.Organization{}
	var plan string
	err := r.db.QueryRowContext(ctx,
		"SELECT id, name, subscription_plan, created_at FROM organizations WHERE id = ?", id,
	).Scan(&org.ID, &org.Name, &plan, &org.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan organization: %w", err)
	}
	org.Plan = models.SubscriptionPlan(plan)
	return org, nil
}

func (r *sqliteOrgRepo) List(ctx context.Context) ([]*models.Organization, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, subscription_plan, created_at FROM organizations ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org := &models.Organization{}
		var plan string
		if err := rows.Scan(&org.ID, &org.Name, &plan, &org.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		org.Plan = models.SubscriptionPlan(plan)
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

type sqliteUserRepo struct {
	db *sql.DB
}

func (r *sqliteUserRepo) Create(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, org_id, username, email, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, user.ID, user.OrgID, user.Username, nullString(user.Email), user.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *sqliteUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT id, org_id, username, email, created_at FROM users WHERE id = ?", id))
}

func (r *sqliteUserRepo) GetByUsername(ctx context.Context, orgID, username string) (*models.User, error) {
	return r.scanOne(r.db.QueryRowContext(ctx,
		"SELECT id, org_id, username, email, created_at FROM users WHERE org_id = ? AND username = ?",
		orgID, username))
}

func (r *sqliteUserRepo) ListByOrg(ctx context.Context, orgID string) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, org_id, username, email, created_at FROM users WHERE org_id = ? ORDER BY username",
		orgID)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		var email sql.NullString
		if err := rows.Scan(&user.ID, &user.OrgID, &user.Username, &email, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		user.Email = email.String
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *sqliteUserRepo) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var email sql.NullString
	err := row.Scan(&user.ID, &user.OrgID, &user.Username, &email, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.Email = email.String
	return user, nil
}
