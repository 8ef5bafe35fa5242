package models

import (
	"time"
)

// Heartbeat is a liveness contract: an external system must signal within
// TimeoutSeconds of its previous signal or it is declared dead.
// (ChannelID, UserDefinedID) is unique.
type Heartbeat struct {
	ID              string    `json:"id"`
	ChannelID       string    `json:"channel_id"`
	UserDefinedID   string    `json:"user_defined_id"`
	TimeoutSeconds  int       `json:"timeout_seconds"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	Link            string    `json:"link"`
	LastSignalAt    time.Time `json:"last_signal_at"`
	LastCheckTaskID string    `json:"-"`
	// Alive reflects the last alerted state: a missed-heartbeat alert is
	// emitted only on the ALIVE -> DEAD edge, a recovery alert on DEAD -> ALIVE.
	Alive     bool      `json:"alive"`
	CreatedAt time.Time `json:"created_at"`
}

// Timeout returns the configured timeout as a duration.
func (h *Heartbeat) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// ExpirationTime returns the deadline by which the next signal must arrive.
func (h *Heartbeat) ExpirationTime() time.Time {
	return h.LastSignalAt.Add(h.Timeout())
}

// IsExpired reports whether the heartbeat deadline has lapsed at now.
func (h *Heartbeat) IsExpired(now time.Time) bool {
	return h.ExpirationTime().Before(now)
}
