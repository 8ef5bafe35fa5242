package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/oncall/internal/metrics"
	"github.com/good-yellow-bee/oncall/internal/models"
	"github.com/good-yellow-bee/oncall/internal/queue"
	"github.com/good-yellow-bee/oncall/internal/storage"
)

// resolveChannel looks up the channel behind the request's integration key.
func (s *Server) resolveChannel(r *http.Request) (*models.Channel, *Error) {
	return s.resolveToken(r, chi.URLParam(r, "channelKey"))
}

func (s *Server) resolveToken(r *http.Request, token string) (*models.Channel, *Error) {
	if token == "" {
		metrics.IngestRejectedTotal.WithLabelValues("unknown_channel").Inc()
		return nil, errChannelKeyNotFound()
	}
	channel, err := s.storage.Channels().GetByToken(r.Context(), token)
	if errors.Is(err, storage.ErrNotFound) {
		metrics.IngestRejectedTotal.WithLabelValues("unknown_channel").Inc()
		return nil, errChannelKeyNotFound()
	}
	if err != nil {
		log.Printf("resolve channel: %v", err)
		return nil, errInternal()
	}
	return channel, nil
}

// checkIntegration rejects a key posted to the wrong integration's URL.
func checkIntegration(channel *models.Channel, endpoint models.Integration) *Error {
	if channel.Integration != endpoint {
		metrics.IngestRejectedTotal.WithLabelValues("wrong_integration").Inc()
		return errWrongIntegrationType(endpoint, channel.Integration)
	}
	return nil
}

// checkRateLimit consumes one request from the channel's window. Debug mode
// and allow-listed channels bypass throttling. The limited outcome is a soft
// signal: the channel owner gets a log line here, the caller the 429.
func (s *Server) checkRateLimit(channel *models.Channel) *Error {
	if s.config.Debug || channel.AllowUnlimited {
		return nil
	}
	if s.limiter.CheckAndConsume(channel.ID).Limited {
		metrics.IngestRateLimitedTotal.Inc()
		log.Printf("channel %s (%s) is rate limited", channel.ID, channel.Name)
		return errRateLimited()
	}
	return nil
}

// enqueueAlert submits a create_alert task for asynchronous processing.
func (s *Server) enqueueAlert(r *http.Request, channel *models.Channel, alert *models.Alert) *Error {
	task, err := queue.NewTask(queue.KindCreateAlert, queue.CreateAlertPayload{Alert: alert})
	if err != nil {
		log.Printf("build create_alert task: %v", err)
		return errInternal()
	}
	if err := s.submitter.Submit(r.Context(), task, 0); err != nil {
		log.Printf("enqueue create_alert task: %v", err)
		return errInternal()
	}
	metrics.IngestReceivedTotal.WithLabelValues(string(channel.Integration)).Inc()
	return nil
}

// decodeJSONBody decodes the request body into a generic JSON object.
func decodeJSONBody(r *http.Request) (map[string]interface{}, *Error) {
	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		metrics.IngestRejectedTotal.WithLabelValues("bad_payload").Inc()
		return nil, errBadRequest("invalid JSON payload")
	}
	return payload, nil
}

// decodeInto decodes the request body into a typed payload.
func decodeInto(r *http.Request, v interface{}) *Error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		metrics.IngestRejectedTotal.WithLabelValues("bad_payload").Inc()
		return errBadRequest("invalid JSON payload")
	}
	return nil
}

// integrationURL renders the externally visible URL for a channel, shown in
// misconfiguration notices.
func (s *Server) integrationURL(channel *models.Channel) string {
	return fmt.Sprintf("%s/integrations/%s/%s", s.config.BaseURL, channel.Integration, channel.Token)
}
