package normalize

import (
	"github.com/good-yellow-bee/oncall/internal/models"
)

// Webhook passes an arbitrary JSON payload through verbatim. Only the raw
// payload is populated; grouping and rendering happen downstream from the
// channel's webhook template configuration.
func Webhook(channelID string, payload map[string]interface{}) *models.Alert {
	alert := models.NewAlert(channelID)
	alert.SetRawPayload(payload)
	return alert
}
