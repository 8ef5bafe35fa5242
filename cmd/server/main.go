package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/oncall/internal/heartbeat"
	"github.com/good-yellow-bee/oncall/internal/ingest"
	"github.com/good-yellow-bee/oncall/internal/metrics"
	"github.com/good-yellow-bee/oncall/internal/queue"
	"github.com/good-yellow-bee/oncall/internal/storage"
	"github.com/good-yellow-bee/oncall/internal/worker"
	"github.com/good-yellow-bee/oncall/pkg/config"
)

var (
	configFile string
	httpAddr   string
	debugMode  bool
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "oncall-server",
	Short: "OnCall Server - Alert ingestion and heartbeat engine",
	Long: `OnCall Server receives alert payloads from monitoring sources,
normalizes them into canonical alerts, tracks heartbeat liveness
signals, and hands processed work to the alerting pipeline.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("oncall-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "disable integration rate limiting")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	var cfg *Config

	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.Address = httpAddr
	}
	if debugMode {
		cfg.Debug = true
	}
	cfg.Verbose = verbose

	// Auto-create data directory
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// Initialize storage
	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	log.Printf("database initialized at %s", cfg.Database.Path)

	// Task queue
	queueCfg := queue.Config{
		URL:           cfg.Queue.URL,
		Stream:        cfg.Queue.Stream,
		Subject:       cfg.Queue.Subject,
		ConsumerName:  cfg.Queue.ConsumerName,
		DeliverGroup:  cfg.Queue.DeliverGroup,
		MaxDeliver:    cfg.Queue.MaxDeliver,
		AckWaitSec:    cfg.Queue.AckWaitSec,
		MaxAckPending: cfg.Queue.MaxAckPending,
	}
	producer, err := queue.NewNATSProducer(queueCfg)
	if err != nil {
		return fmt.Errorf("connect task queue: %w", err)
	}
	defer producer.Close()

	scheduler := queue.NewScheduler(producer, store.Tasks())
	monitor := heartbeat.NewMonitor(store.Heartbeats(), scheduler)

	// Queue worker
	taskWorker := worker.New(store.Alerts(), monitor)
	consumer, err := queue.NewNATSWorker(queueCfg, taskWorker.Handle)
	if err != nil {
		return fmt.Errorf("start queue worker: %w", err)
	}
	defer consumer.Close()

	// Ingestion server
	window, err := cfg.RateLimitWindow()
	if err != nil {
		return fmt.Errorf("rate_limit.window: %w", err)
	}
	ingestCfg := &ingest.Config{
		Address:          cfg.Server.Address,
		BaseURL:          cfg.Server.BaseURL,
		Debug:            cfg.Debug,
		RateLimit:        cfg.RateLimit.Requests,
		RateLimitWindow:  window,
		SignalRatePerSec: float64(cfg.RateLimit.SignalRatePerSec),
		SignalBurst:      cfg.RateLimit.SignalBurst,
		Verbose:          cfg.Verbose,
	}
	srv, err := ingest.New(ingestCfg, store, scheduler, monitor)
	if err != nil {
		return fmt.Errorf("create ingestion server: %w", err)
	}

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	metrics.SetBuildInfo(config.Version, config.Commit, config.BuildTime)
	log.Printf("starting oncall-server %s", config.Version)
	if cfg.Debug {
		log.Printf("debug mode: integration rate limiting disabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	if cfg.Metrics.Enabled {
		metricsSrv := metrics.NewServer(cfg.Metrics.Address)
		g.Go(func() error {
			return metricsSrv.Start()
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}
