package ingest

import (
	"fmt"
	"net/http"

	"github.com/good-yellow-bee/oncall/internal/models"
)

// Error maps an ingestion failure to its plain-text HTTP response. Inbound
// integrations are machine callers; they get terse plain text, not JSON.
type Error struct {
	Status int
	Text   string
}

func (e *Error) Error() string {
	return e.Text
}

// errChannelKeyNotFound covers an unresolvable integration key.
func errChannelKeyNotFound() *Error {
	return &Error{
		Status: http.StatusForbidden,
		Text:   "Integration key was not found. Permission denied.",
	}
}

// errWrongIntegrationType covers a key posted to another integration's URL.
func errWrongIntegrationType(endpoint, channel models.Integration) *Error {
	return &Error{
		Status: http.StatusBadRequest,
		Text: fmt.Sprintf("This url is for integration with %s. Key is for %s",
			endpoint.DisplayName(), channel.DisplayName()),
	}
}

// errWrongSlug covers a universal-webhook post whose path slug does not
// match the channel's configured slug.
func errWrongSlug(slug string, channel models.Integration) *Error {
	return &Error{
		Status: http.StatusBadRequest,
		Text: fmt.Sprintf("This url is for integration with %s. Key is for %s",
			slug, channel.DisplayName()),
	}
}

func errRateLimited() *Error {
	return &Error{
		Status: http.StatusTooManyRequests,
		Text:   "Too many alerts, integration is rate-limited. Please slow down.",
	}
}

func errBadRequest(text string) *Error {
	return &Error{Status: http.StatusBadRequest, Text: text}
}

func errInternal() *Error {
	return &Error{Status: http.StatusInternalServerError, Text: "Internal error."}
}
