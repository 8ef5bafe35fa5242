package normalize

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/good-yellow-bee/oncall/internal/models"
)

// EmailPayload carries the parsed fields of an inbound email webhook.
type EmailPayload struct {
	To       string `json:"to"`
	Envelope string `json:"envelope"`
	Subject  string `json:"subject"`
	Text     string `json:"text"`
}

// ErrNoRecipient is returned when no channel token can be derived from the
// email recipient headers.
var ErrNoRecipient = errors.New("no recipient to derive channel token from")

// TokenFromTo derives the channel token from the "to" header local part.
func (e EmailPayload) TokenFromTo() (string, error) {
	return localPart(e.To)
}

// TokenFromEnvelope derives the channel token from the first recipient of
// the envelope JSON. Forwarded mail often carries the real recipient here
// rather than in the "to" header.
func (e EmailPayload) TokenFromEnvelope() (string, error) {
	if e.Envelope == "" {
		return "", ErrNoRecipient
	}
	var envelope struct {
		To []string `json:"to"`
	}
	if err := json.Unmarshal([]byte(e.Envelope), &envelope); err != nil {
		return "", err
	}
	if len(envelope.To) == 0 {
		return "", ErrNoRecipient
	}
	return localPart(envelope.To[0])
}

func localPart(address string) (string, error) {
	if address == "" {
		return "", ErrNoRecipient
	}
	return strings.SplitN(address, "@", 2)[0], nil
}

// Email normalizes an inbound email into a canonical alert: subject becomes
// the title, the trimmed body text the message.
func Email(channelID string, payload EmailPayload) *models.Alert {
	alert := models.NewAlert(channelID)
	alert.Title = models.StringPtr(payload.Subject)
	alert.Message = models.StringPtr(strings.TrimSpace(payload.Text))
	alert.SetUniqueData(map[string]string{
		"title":   payload.Subject,
		"message": strings.TrimSpace(payload.Text),
	})
	alert.SetRawPayload(payload)
	return alert
}
