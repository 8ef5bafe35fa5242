// Package quota computes per-user notification quotas against subscription
// plan limits. Counts are read-only aggregates over notification-send
// records: a "left" value observed at send time, not a hard reservation.
package quota

import (
	"context"

	"github.com/good-yellow-bee/oncall/internal/models"
	"github.com/good-yellow-bee/oncall/internal/storage"
)

// Limit is one quota line of the web report.
type Limit struct {
	Title string `json:"limit_title"`
	Total int    `json:"total"`
	Left  int    `json:"left"`
}

// WebReport is the structured quota summary shown to a user.
type WebReport struct {
	PeriodTitle string  `json:"period_title"`
	Limits      []Limit `json:"limits_to_show"`
	ShowWarning bool    `json:"show_limits_warning"`
	WarningText string  `json:"warning_text"`
}

// Strategy answers quota queries for one organization's subscription plan.
// New plans implement this interface; callers never branch on the plan.
type Strategy interface {
	PhoneCallsLeft(ctx context.Context, user *models.User) (int, error)
	SMSLeft(ctx context.Context, user *models.User) (int, error)
	EmailsLeft(ctx context.Context, user *models.User) (int, error)
	WebReport(ctx context.Context, user *models.User) (*WebReport, error)
}

// StrategyFor selects the quota strategy for an organization.
func StrategyFor(org *models.Organization, notifications storage.NotificationRepository) Strategy {
	switch org.Plan {
	case models.PlanFreePublicBeta:
		return NewFreePublicBeta(org, notifications)
	default:
		return NewFreePublicBeta(org, notifications)
	}
}
