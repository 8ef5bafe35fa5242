package ingest

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/oncall/internal/models"
	"github.com/good-yellow-bee/oncall/internal/normalize"
)

// handleAlertmanager ingests AlertManager webhook payloads: one canonical
// alert enqueued per element of the alerts list.
func (s *Server) handleAlertmanager(w http.ResponseWriter, r *http.Request) {
	s.alertmanagerFamily(w, r, models.IntegrationAlertmanager)
}

// handleGrafanaAlerting ingests new-style Grafana alerts, which share the
// AlertManager payload shape.
func (s *Server) handleGrafanaAlerting(w http.ResponseWriter, r *http.Request) {
	s.alertmanagerFamily(w, r, models.IntegrationGrafanaAlerting)
}

func (s *Server) alertmanagerFamily(w http.ResponseWriter, r *http.Request, endpoint models.Integration) {
	channel, apiErr := s.resolveChannel(r)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}
	if apiErr := checkIntegration(channel, endpoint); apiErr != nil {
		respondError(w, apiErr)
		return
	}
	if apiErr := s.checkRateLimit(channel); apiErr != nil {
		respondError(w, apiErr)
		return
	}

	payload, apiErr := decodeJSONBody(r)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	s.enqueueAlertmanager(w, r, channel, payload)
}

// enqueueAlertmanager normalizes and enqueues each entry of an
// AlertManager-shaped payload. A payload without an alerts list is accepted
// and produces nothing; upstream senders probe with empty bodies.
func (s *Server) enqueueAlertmanager(w http.ResponseWriter, r *http.Request, channel *models.Channel, payload map[string]interface{}) {
	alerts, err := normalize.Alertmanager(channel.ID, payload)
	if err != nil && !errors.Is(err, normalize.ErrNoAlerts) {
		respondError(w, errBadRequest("invalid alerts payload"))
		return
	}
	for _, alert := range alerts {
		if apiErr := s.enqueueAlert(r, channel, alert); apiErr != nil {
			respondError(w, apiErr)
			return
		}
	}
	respondOK(w)
}

// handleGrafana supports both new Grafana (AlertManager shape) and the
// legacy webhook shape, including the Slack-misconfiguration fallback.
func (s *Server) handleGrafana(w http.ResponseWriter, r *http.Request) {
	channel, apiErr := s.resolveChannel(r)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}
	if apiErr := checkIntegration(channel, models.IntegrationGrafana); apiErr != nil {
		respondError(w, apiErr)
		return
	}
	if apiErr := s.checkRateLimit(channel); apiErr != nil {
		respondError(w, apiErr)
		return
	}

	payload, apiErr := decodeJSONBody(r)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	if normalize.HasAlertsKey(payload) {
		s.enqueueAlertmanager(w, r, channel, payload)
		return
	}

	alert := normalize.GrafanaLegacy(channel.ID, s.integrationURL(channel), payload)
	if apiErr := s.enqueueAlert(r, channel, alert); apiErr != nil {
		respondError(w, apiErr)
		return
	}
	respondOK(w)
}

// snsEnvelope is the subset of the SNS delivery envelope the normalizer
// needs. Message is monitoring JSON or free text.
type snsEnvelope struct {
	Message  string `json:"Message"`
	TopicARN string `json:"TopicArn"`
}

// handleAmazonSNS ingests SNS notifications. Non-JSON message bodies degrade
// to a raw-text alert instead of failing.
func (s *Server) handleAmazonSNS(w http.ResponseWriter, r *http.Request) {
	channel, apiErr := s.resolveChannel(r)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}
	if apiErr := checkIntegration(channel, models.IntegrationAmazonSNS); apiErr != nil {
		respondError(w, apiErr)
		return
	}
	if apiErr := s.checkRateLimit(channel); apiErr != nil {
		respondError(w, apiErr)
		return
	}

	var envelope snsEnvelope
	if apiErr := decodeInto(r, &envelope); apiErr != nil {
		respondError(w, apiErr)
		return
	}

	alert := normalize.AmazonSNS(channel.ID, envelope.Message, envelope.TopicARN)
	if apiErr := s.enqueueAlert(r, channel, alert); apiErr != nil {
		respondError(w, apiErr)
		return
	}
	respondOK(w)
}

// handleUniversal ingests arbitrary JSON for webhook channels. The path's
// integration-type slug must match the channel's configured slug.
func (s *Server) handleUniversal(w http.ResponseWriter, r *http.Request) {
	channel, apiErr := s.resolveChannel(r)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}
	slug := chi.URLParam(r, "integrationType")
	if channel.Slug != slug {
		respondError(w, errWrongSlug(slug, channel.Integration))
		return
	}
	if apiErr := s.checkRateLimit(channel); apiErr != nil {
		respondError(w, apiErr)
		return
	}

	payload, apiErr := decodeJSONBody(r)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}

	alert := normalize.Webhook(channel.ID, payload)
	if apiErr := s.enqueueAlert(r, channel, alert); apiErr != nil {
		respondError(w, apiErr)
		return
	}
	respondOK(w)
}

// handleEmail ingests parsed inbound email. The channel key comes from the
// URL when present; otherwise it is derived from the "to" header's local
// part, falling back to the envelope's first recipient for forwarded mail.
func (s *Server) handleEmail(w http.ResponseWriter, r *http.Request) {
	var payload normalize.EmailPayload
	if apiErr := decodeInto(r, &payload); apiErr != nil {
		respondError(w, apiErr)
		return
	}

	channel, apiErr := s.resolveEmailChannel(r, payload)
	if apiErr != nil {
		respondError(w, apiErr)
		return
	}
	if apiErr := s.checkRateLimit(channel); apiErr != nil {
		respondError(w, apiErr)
		return
	}

	alert := normalize.Email(channel.ID, payload)
	if apiErr := s.enqueueAlert(r, channel, alert); apiErr != nil {
		respondError(w, apiErr)
		return
	}
	respondOK(w)
}

func (s *Server) resolveEmailChannel(r *http.Request, payload normalize.EmailPayload) (*models.Channel, *Error) {
	if key := chi.URLParam(r, "channelKey"); key != "" {
		return s.resolveToken(r, key)
	}

	if token, err := payload.TokenFromTo(); err == nil {
		if channel, apiErr := s.resolveToken(r, token); apiErr == nil {
			return channel, nil
		}
	}
	if token, err := payload.TokenFromEnvelope(); err == nil {
		if channel, apiErr := s.resolveToken(r, token); apiErr == nil {
			return channel, nil
		}
	}
	return nil, errChannelKeyNotFound()
}
