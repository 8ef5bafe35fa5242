package ingest

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(requestLogger(s.config.Verbose))
	r.Use(prometheusMiddleware)
	r.Use(recoverer)

	r.Route("/integrations", func(r chi.Router) {
		r.Post("/amazon_sns/{channelKey}", s.handleAmazonSNS)
		r.Post("/alertmanager/{channelKey}", s.handleAlertmanager)
		r.Post("/grafana_alerting/{channelKey}", s.handleGrafanaAlerting)
		r.Post("/grafana/{channelKey}", s.handleGrafana)
		r.Post("/universal/{channelKey}/{integrationType}", s.handleUniversal)
		r.Post("/heartbeat/{channelKey}", s.handleHeartbeatAction)
		r.Get("/heartbeat_signal/{channelKey}", s.handleHeartbeatSignal)
		r.Post("/heartbeat_signal/{channelKey}", s.handleHeartbeatSignal)
		r.Post("/email", s.handleEmail)
		r.Post("/email/{channelKey}", s.handleEmail)
	})

	// Health check (public, no rate limit)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

// respondOK writes the plain-text success body every integration expects.
func respondOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("Ok.")); err != nil {
		log.Printf("failed to write response: %v", err)
	}
}

func respondError(w http.ResponseWriter, apiErr *Error) {
	http.Error(w, apiErr.Text, apiErr.Status)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
