package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"app_radar/internal/config"
	"app_radar/internal/domain"
	"app_radar/internal/metrics"
	"app_radar/internal/publisher"
	"app_radar/internal/scheduler"
	"app_radar/internal/service"
	"app_radar/internal/source"
	"app_radar/internal/source/itunes"
	"app_radar/internal/storage/memory"
	"app_radar/internal/storage/postgres"
)

var testTargets = []string{"Lemon8", "CapCut", "Notion"}

type options struct {
	configPath  string
	top         int
	apps        string
	skipWebhook bool
	test        bool
	once        bool
	dryRun      bool
}

// appStore is the app store plus the health check run at startup.
type appStore interface {
	service.AppStore
	Ping(ctx context.Context) error
}

type stores struct {
	apps      appStore
	metrics   service.MetricStore
	txManager service.TransactionManager
	close     func() error
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "config.yaml", "path to config file")
	flag.IntVar(&opts.top, "top", 0, "number of apps in the ranking (overrides digest.top_n)")
	flag.StringVar(&opts.apps, "apps", "", "comma-separated app names to collect instead of the configured targets")
	flag.BoolVar(&opts.skipWebhook, "skip-webhook", false, "do not post the digest to the webhook")
	flag.BoolVar(&opts.test, "test", false, "collect three sample apps and exit")
	flag.BoolVar(&opts.once, "once", false, "run a single cycle and exit")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "use an in-memory store, publish nothing and print the digest")
	flag.Parse()

	os.Exit(run(opts))
}

func run(opts options) int {
	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}

	logger = setupLogger(cfg.LogLevel)

	targets := cfg.Targets
	switch {
	case opts.apps != "":
		targets = splitTargets(opts.apps)
	case opts.test:
		targets = testTargets
	}
	topN := cfg.Digest.TopN
	if opts.top > 0 {
		topN = opts.top
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	if cfg.Metrics.Addr != "" {
		go serveMetrics(ctx, cfg.Metrics.Addr, logger)
	}

	st, err := openStores(ctx, cfg, opts.dryRun, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return 1
	}
	defer st.close()

	// Initialize iTunes source with retry
	itunesSource := itunes.New(itunes.Config{
		BaseURL: cfg.API.BaseURL,
		Country: cfg.API.Country,
		Limit:   cfg.API.Limit,
		Timeout: cfg.API.Timeout,
	}, logger)
	fetcher := source.NewRetrying(itunesSource, source.RetryConfig{
		MaxAttempts:    cfg.API.Retry.MaxAttempts,
		InitialBackoff: cfg.API.Retry.InitialBackoff,
		MaxBackoff:     cfg.API.Retry.MaxBackoff,
	}, logger)

	collector := service.NewCollectService(fetcher, st.apps, st.metrics, st.txManager, logger, cfg.Collect)

	fanout, err := openPublishers(cfg, opts, logger)
	if err != nil {
		logger.Error("failed to set up publishers", "error", err)
		return 1
	}
	defer fanout.Close()

	var pub service.Publisher
	if fanout.Len() > 0 {
		pub = fanout
	}

	radar := service.NewRadarService(collector, pub, targets, topN, logger)

	if opts.once || opts.test || opts.dryRun || opts.apps != "" {
		stats, report, err := radar.RunTargets(ctx, targets)
		printSummary(stats)
		if err != nil {
			logger.Error("run failed", "error", err)
			return 1
		}
		if opts.dryRun {
			printReport(report)
		}
		if stats.Succeeded == 0 {
			return 1
		}
		return 0
	}

	logger.Info("starting app radar",
		"source", itunesSource.Name(),
		"targets", len(targets),
		"interval", cfg.Schedule.Interval,
		"workers", cfg.Collect.Workers,
	)

	sched := scheduler.NewScheduler(radar, cfg.Schedule.Interval, cfg.Schedule.RunTimeout, logger)
	if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scheduler error", "error", err)
		return 1
	}
	return 0
}

func openStores(ctx context.Context, cfg *config.Config, dryRun bool, logger *slog.Logger) (*stores, error) {
	st, err := newStores(cfg, dryRun, logger)
	if err != nil {
		return nil, err
	}

	if err := st.apps.Ping(ctx); err != nil {
		st.close()
		return nil, fmt.Errorf("ping store: %w", err)
	}
	return st, nil
}

func newStores(cfg *config.Config, dryRun bool, logger *slog.Logger) (*stores, error) {
	if dryRun {
		logger.Info("dry run: using in-memory store")
		mem := memory.New()
		return &stores{
			apps:      mem,
			metrics:   mem,
			txManager: mem,
			close:     func() error { return nil },
		}, nil
	}

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("connected to database")

	if err := postgres.Migrate(cfg.Database.DSN()); err != nil {
		db.Close()
		return nil, err
	}

	return &stores{
		apps:      postgres.NewAppStore(db),
		metrics:   postgres.NewMetricStore(db),
		txManager: postgres.NewTransactionManager(db),
		close:     db.Close,
	}, nil
}

func openPublishers(cfg *config.Config, opts options, logger *slog.Logger) (*publisher.Fanout, error) {
	var targets []publisher.Target
	if opts.dryRun {
		return publisher.NewFanout(logger), nil
	}

	if cfg.Webhook.URL != "" && !opts.skipWebhook {
		targets = append(targets, publisher.NewWebhook(publisher.WebhookConfig{
			URL:          cfg.Webhook.URL,
			Timeout:      cfg.Webhook.Timeout,
			AnalysisURLs: cfg.Webhook.AnalysisURLs,
		}, logger))
	}

	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
			MessageTTL: cfg.RabbitMQ.MessageTTL,
		}, logger)
		if err != nil {
			return nil, err
		}
		targets = append(targets, rabbitMQ)
	}

	return publisher.NewFanout(logger, targets...), nil
}

func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "error", err)
	}
}

func splitTargets(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func printSummary(stats *domain.RunStats) {
	if stats == nil {
		return
	}
	fmt.Printf("collected %d/%d apps\n", stats.Succeeded, stats.Total)
	for _, f := range stats.Failures {
		fmt.Printf("  [%d] %s: %v\n", f.Position, f.Target, f.Err)
	}
	if stats.PublishErr != nil {
		fmt.Printf("digest not delivered: %v\n", stats.PublishErr)
	}
}

func printReport(report *domain.DigestReport) {
	if report == nil {
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
