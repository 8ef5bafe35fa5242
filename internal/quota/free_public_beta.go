package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/good-yellow-bee/oncall/internal/models"
	"github.com/good-yellow-bee/oncall/internal/storage"
)

// Free public beta limits. Calls and SMS share one pooled daily limit.
const (
	betaPhoneNotificationsLimit = 200
	betaEmailsLimit             = 200
)

// FreePublicBeta limits notifications per user per day. User management
// itself happens upstream; this strategy only does the accounting.
type FreePublicBeta struct {
	org           *models.Organization
	notifications storage.NotificationRepository
	now           func() time.Time
}

// NewFreePublicBeta creates the free public beta strategy for an org.
func NewFreePublicBeta(org *models.Organization, notifications storage.NotificationRepository) *FreePublicBeta {
	return &FreePublicBeta{
		org:           org,
		notifications: notifications,
		now:           time.Now,
	}
}

// PhoneCallsLeft returns the pooled calls+SMS remainder for today.
func (s *FreePublicBeta) PhoneCallsLeft(ctx context.Context, user *models.User) (int, error) {
	return s.phoneNotificationsLeft(ctx, user)
}

// SMSLeft returns the pooled calls+SMS remainder for today.
func (s *FreePublicBeta) SMSLeft(ctx context.Context, user *models.User) (int, error) {
	return s.phoneNotificationsLeft(ctx, user)
}

// EmailsLeft returns today's email remainder. Informational only while
// email sending is disabled upstream.
func (s *FreePublicBeta) EmailsLeft(ctx context.Context, user *models.User) (int, error) {
	count, err := s.notifications.CountSince(ctx, s.org.ID, user.ID,
		[]models.NotificationKind{models.NotificationEmail}, s.dayStart())
	if err != nil {
		return 0, fmt.Errorf("count emails: %w", err)
	}
	return betaEmailsLimit - int(count), nil
}

// WebReport builds the daily limit summary. The warning shows when less
// than 20% of notifications remain.
func (s *FreePublicBeta) WebReport(ctx context.Context, user *models.User) (*WebReport, error) {
	left, err := s.phoneNotificationsLeft(ctx, user)
	if err != nil {
		return nil, err
	}

	limit := betaPhoneNotificationsLimit
	almost := " almost"
	if left == 0 {
		almost = ""
	}

	return &WebReport{
		PeriodTitle: "Daily limit",
		Limits: []Limit{
			{Title: "Phone Calls & SMS", Total: limit, Left: left},
		},
		ShowWarning: left <= limit*2/10,
		WarningText: fmt.Sprintf(
			"You%s have exceeded the limit of phone calls and sms: %d of %d left.",
			almost, left, limit),
	}, nil
}

// phoneNotificationsLeft counts sms and calls together against the common
// daily limit.
func (s *FreePublicBeta) phoneNotificationsLeft(ctx context.Context, user *models.User) (int, error) {
	count, err := s.notifications.CountSince(ctx, s.org.ID, user.ID,
		[]models.NotificationKind{models.NotificationPhoneCall, models.NotificationSMS},
		s.dayStart())
	if err != nil {
		return 0, fmt.Errorf("count phone notifications: %w", err)
	}
	return betaPhoneNotificationsLimit - int(count), nil
}

// dayStart is local midnight: the accounting period boundary.
func (s *FreePublicBeta) dayStart() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
