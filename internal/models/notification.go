package models

import (
	"time"
)

// NotificationKind is the delivery medium of a sent notification.
type NotificationKind string

const (
	NotificationPhoneCall NotificationKind = "phone_call"
	NotificationSMS       NotificationKind = "sms"
	NotificationEmail     NotificationKind = "email"
)

// Notification records a single notification send attributed to a user.
// The escalation subsystem writes these; the quota ledger aggregates them.
type Notification struct {
	ID        string           `json:"id"`
	OrgID     string           `json:"org_id"`
	UserID    string           `json:"user_id"`
	Kind      NotificationKind `json:"kind"`
	CreatedAt time.Time        `json:"created_at"`
}

// ParseNotificationKind converts a string to NotificationKind.
func ParseNotificationKind(s string) NotificationKind {
	switch s {
	case "phone_call":
		return NotificationPhoneCall
	case "email":
		return NotificationEmail
	default:
		return NotificationSMS
	}
}
