// Package normalize converts heterogeneous inbound monitoring payloads into
// canonical alerts. All functions are pure transformations; enqueueing the
// result is the caller's responsibility.
package normalize

import (
	"errors"
)

// docsBaseURL is appended to fallback messages that point users at the
// integration documentation.
const docsBaseURL = "https://docs.amixr.io"

// ErrNoAlerts is returned when an AlertManager-shaped payload carries no
// alerts list.
var ErrNoAlerts = errors.New("payload has no alerts list")

// getString pulls a string value out of a decoded JSON object, returning
// the empty string when absent or of another type.
func getString(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

// getMap pulls a nested object out of a decoded JSON payload.
func getMap(payload map[string]interface{}, key string) map[string]interface{} {
	if v, ok := payload[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

// getList pulls a list out of a decoded JSON payload.
func getList(payload map[string]interface{}, key string) []interface{} {
	if v, ok := payload[key].([]interface{}); ok {
		return v
	}
	return nil
}
