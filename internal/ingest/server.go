// Package ingest provides the HTTP server that receives inbound monitoring
// payloads. The synchronous path is resolve channel, check integration type,
// rate limit, normalize, enqueue. Upstream senders enforce aggressive
// timeouts, so nothing heavier runs before the response is written.
package ingest

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/oncall/internal/heartbeat"
	"github.com/good-yellow-bee/oncall/internal/queue"
	"github.com/good-yellow-bee/oncall/internal/ratelimit"
	"github.com/good-yellow-bee/oncall/internal/storage"
)

// Config contains ingestion server configuration.
type Config struct {
	Address string
	// BaseURL is the externally visible URL prefix, used when a response
	// needs to render a channel's integration URL.
	BaseURL string
	// Debug disables rate limiting, mirroring a permissive dev setup.
	Debug bool
	// RateLimit is the per-channel request budget per window.
	RateLimit       int
	RateLimitWindow time.Duration
	// SignalRatePerSec bounds heartbeat liveness pings per channel.
	SignalRatePerSec float64
	SignalBurst      int
	Verbose          bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8080"
	}
	if c.RateLimit == 0 {
		c.RateLimit = 300
	}
	if c.RateLimitWindow == 0 {
		c.RateLimitWindow = 5 * time.Minute
	}
	if c.SignalRatePerSec == 0 {
		c.SignalRatePerSec = 2
	}
	if c.SignalBurst == 0 {
		c.SignalBurst = 10
	}
}

// Server is the ingestion HTTP server.
type Server struct {
	config    *Config
	storage   storage.Storage
	submitter queue.Submitter
	monitor   *heartbeat.Monitor
	limiter   *ratelimit.Limiter
	signals   *ratelimit.SignalLimiter
	server    *http.Server
}

// New creates an ingestion server.
func New(cfg *Config, store storage.Storage, submitter queue.Submitter, monitor *heartbeat.Monitor) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if submitter == nil {
		return nil, fmt.Errorf("task submitter is required")
	}
	if monitor == nil {
		return nil, fmt.Errorf("heartbeat monitor is required")
	}

	cfg.SetDefaults()

	s := &Server{
		config:    cfg,
		storage:   store,
		submitter: submitter,
		monitor:   monitor,
		limiter:   ratelimit.NewLimiter(cfg.RateLimit, cfg.RateLimitWindow),
		signals:   ratelimit.NewSignalLimiter(cfg.SignalRatePerSec, cfg.SignalBurst),
	}

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		log.Printf("ingestion HTTP server listening on %s", s.config.Address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutting down ingestion server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}
