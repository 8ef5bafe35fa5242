package models

import (
	"time"
)

// SubscriptionPlan selects the quota strategy applied to an organization.
type SubscriptionPlan string

const (
	PlanFreePublicBeta SubscriptionPlan = "free_public_beta"
)

// Organization is the tenant owning channels, users, and quota accounting.
type Organization struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Plan      SubscriptionPlan `json:"subscription_plan"`
	CreatedAt time.Time        `json:"created_at"`
}

// User is a notification recipient inside an organization.
type User struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// ParsePlan converts a string to SubscriptionPlan. Unknown plans fall back
// to the free public beta.
func ParsePlan(s string) SubscriptionPlan {
	switch s {
	case "free_public_beta":
		return PlanFreePublicBeta
	default:
		return PlanFreePublicBeta
	}
}
