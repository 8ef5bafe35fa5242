package normalize

import (
	"fmt"

	"github.com/good-yellow-bee/oncall/internal/models"
)

// GrafanaLegacy normalizes an old-style Grafana alert notification.
// Payloads carrying an "alerts" key must be routed to Alertmanager by the
// caller before reaching this function.
//
// A payload with an "attachments" list is a Slack webhook body: the user
// pointed Grafana's Slack notifier at the integration URL by mistake. That
// shape is still accepted, with a misconfiguration notice prepended to the
// message, so the alert is not lost.
func GrafanaLegacy(channelID, integrationURL string, payload map[string]interface{}) *models.Alert {
	if attachments := getList(payload, "attachments"); len(attachments) > 0 {
		return grafanaSlackFallback(channelID, integrationURL, payload, attachments)
	}

	alert := models.NewAlert(channelID)

	title := getString(payload, "title")
	if title == "" {
		title = "Title"
	}
	alert.Title = models.StringPtr(title)

	if msg := getString(payload, "message"); msg != "" {
		alert.Message = models.StringPtr(msg)
	}
	if img := getString(payload, "imageUrl"); img != "" {
		alert.ImageURL = models.StringPtr(img)
	}
	if link := getString(payload, "ruleUrl"); link != "" {
		alert.LinkToUpstream = models.StringPtr(link)
	}

	evalMatches := getList(payload, "evalMatches")
	if evalMatches == nil {
		evalMatches = []interface{}{}
	}
	alert.SetUniqueData(map[string]interface{}{"evalMatches": evalMatches})
	alert.SetRawPayload(payload)
	return alert
}

// grafanaSlackFallback extracts the first attachment of a Slack-shaped body.
func grafanaSlackFallback(channelID, integrationURL string, payload map[string]interface{}, attachments []interface{}) *models.Alert {
	alert := models.NewAlert(channelID)

	attachment, ok := attachments[0].(map[string]interface{})
	if !ok {
		attachment = map[string]interface{}{}
	}

	title := getString(attachment, "title")
	if title == "" {
		title = "Title"
	}
	alert.Title = models.StringPtr(title)

	notice := fmt.Sprintf(
		"_FYI: Misconfiguration detected. Please switch integration type from Slack to WebHook in Grafana._\n"+
			"_Integration URL: %s _\n\n", integrationURL)
	alert.Message = models.StringPtr(notice + getString(attachment, "text"))

	if img := getString(attachment, "image_url"); img != "" {
		alert.ImageURL = models.StringPtr(img)
	}
	if link := getString(attachment, "title_link"); link != "" {
		alert.LinkToUpstream = models.StringPtr(link)
	}

	// Attachment fields map onto the evalMatches shape downstream grouping
	// expects: one {metric, value} pair per field.
	matches := make([]map[string]string, 0)
	for _, f := range getList(attachment, "fields") {
		field, ok := f.(map[string]interface{})
		if !ok {
			continue
		}
		matches = append(matches, map[string]string{
			"metric": getString(field, "title"),
			"value":  fmt.Sprintf("%v", field["value"]),
		})
	}
	alert.SetUniqueData(map[string]interface{}{"evalMatches": matches})
	alert.SetRawPayload(payload)
	return alert
}
