package normalize

import (
	"github.com/good-yellow-bee/oncall/internal/models"
)

// HasAlertsKey reports whether the payload is AlertManager-shaped, i.e.
// carries an "alerts" key. New-style Grafana posts the same shape.
func HasAlertsKey(payload map[string]interface{}) bool {
	_, ok := payload["alerts"]
	return ok
}

// Alertmanager normalizes an AlertManager (or Grafana Alerting) webhook
// payload. Each element of the alerts list becomes one canonical alert so
// the caller enqueues exactly one task per element.
func Alertmanager(channelID string, payload map[string]interface{}) ([]*models.Alert, error) {
	list := getList(payload, "alerts")
	if list == nil {
		return nil, ErrNoAlerts
	}

	alerts := make([]*models.Alert, 0, len(list))
	for _, elem := range list {
		entry, ok := elem.(map[string]interface{})
		if !ok {
			entry = map[string]interface{}{}
		}
		alerts = append(alerts, alertmanagerEntry(channelID, entry))
	}
	return alerts, nil
}

// alertmanagerEntry maps one element of the alerts list.
func alertmanagerEntry(channelID string, entry map[string]interface{}) *models.Alert {
	alert := models.NewAlert(channelID)

	labels := getMap(entry, "labels")
	annotations := getMap(entry, "annotations")

	title := "Alert"
	if labels != nil {
		if name := getString(labels, "alertname"); name != "" {
			title = name
		}
	}
	alert.Title = models.StringPtr(title)

	if annotations != nil {
		for _, key := range []string{"message", "summary", "description"} {
			if msg := getString(annotations, key); msg != "" {
				alert.Message = models.StringPtr(msg)
				break
			}
		}
	}

	if link := getString(entry, "generatorURL"); link != "" {
		alert.LinkToUpstream = models.StringPtr(link)
	}

	if labels != nil {
		alert.SetUniqueData(map[string]interface{}{"labels": labels})
	}
	alert.SetRawPayload(entry)
	return alert
}
