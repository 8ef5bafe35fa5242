package models

import (
	"encoding/json"
	"time"
)

// Alert is the canonical internal representation produced from any
// source-specific payload. Alerts are immutable once created; ownership
// passes to the alert-group subsystem after the async worker persists them.
type Alert struct {
	ID             string  `json:"id"`
	ChannelID      string  `json:"channel_id"`
	Title          *string `json:"title"`
	Message        *string `json:"message"`
	ImageURL       *string `json:"image_url"`
	LinkToUpstream *string `json:"link_to_upstream"`
	// UniqueData carries dedup/grouping key material (JSON-encoded).
	UniqueData string    `json:"integration_unique_data,omitempty"`
	RawPayload string    `json:"raw_payload"` // Original request body, JSON-encoded
	CreatedAt  time.Time `json:"created_at"`
}

// NewAlert creates an Alert bound to a channel with an initialized timestamp.
func NewAlert(channelID string) *Alert {
	return &Alert{
		ChannelID: channelID,
		CreatedAt: time.Now(),
	}
}

// SetUniqueData JSON-encodes the grouping key material.
func (a *Alert) SetUniqueData(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	a.UniqueData = string(data)
	return nil
}

// SetRawPayload JSON-encodes the original request payload.
func (a *Alert) SetRawPayload(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	a.RawPayload = string(data)
	return nil
}

// StringPtr returns a pointer to s. Canonical alert fields are optional;
// nil means the source did not provide a value.
func StringPtr(s string) *string {
	return &s
}
