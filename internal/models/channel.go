// Package models defines domain models for the OnCall engine.
package models

import (
	"time"
)

// Integration identifies the kind of monitoring source a channel accepts.
type Integration string

const (
	IntegrationAlertmanager    Integration = "alertmanager"
	IntegrationGrafanaAlerting Integration = "grafana_alerting"
	IntegrationGrafana         Integration = "grafana"
	IntegrationAmazonSNS       Integration = "amazon_sns"
	IntegrationWebhook         Integration = "webhook"
	IntegrationEmail           Integration = "email"
)

// DisplayName returns the human-readable integration name used in
// endpoint-mismatch diagnostics.
func (i Integration) DisplayName() string {
	switch i {
	case IntegrationAlertmanager:
		return "AlertManager"
	case IntegrationGrafanaAlerting:
		return "Grafana Alerting"
	case IntegrationGrafana:
		return "Grafana"
	case IntegrationAmazonSNS:
		return "Amazon SNS"
	case IntegrationWebhook:
		return "Webhook"
	case IntegrationEmail:
		return "Inbound Email"
	default:
		return string(i)
	}
}

// Channel is a configured inbound integration endpoint identified by a
// secret token. Each monitoring source posts to exactly one channel.
type Channel struct {
	ID             string      `json:"id"`
	OrgID          string      `json:"org_id"`
	Token          string      `json:"-"` // Secret key, never exposed in JSON
	Integration    Integration `json:"integration"`
	Name           string      `json:"name"`
	Slug           string      `json:"slug,omitempty"` // Webhook integration type slug
	AllowUnlimited bool        `json:"allow_unlimited"`
	CreatedAt      time.Time   `json:"created_at"`
}

// NewChannel creates a new Channel with an initialized timestamp.
func NewChannel(orgID, name string, integration Integration) *Channel {
	return &Channel{
		OrgID:       orgID,
		Name:        name,
		Integration: integration,
		CreatedAt:   time.Now(),
	}
}

// ParseIntegration converts a string to Integration. Unknown values map to
// the generic webhook integration.
func ParseIntegration(s string) Integration {
	switch s {
	case "alertmanager":
		return IntegrationAlertmanager
	case "grafana_alerting":
		return IntegrationGrafanaAlerting
	case "grafana":
		return IntegrationGrafana
	case "amazon_sns":
		return IntegrationAmazonSNS
	case "email":
		return IntegrationEmail
	default:
		return IntegrationWebhook
	}
}
