/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the tenancy compliance server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load config (YAML file, then TENANCY_* env), then apply flags
  2. Initialize SQLite store
  3. Persist the holiday table and build the calendar from stored holidays
  4. Create the engine, service, metrics and API handler
  5. Start the status sweep and the HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -config    YAML config file (optional)
  -addr      HTTP listen address (default: :8080)
  -db        SQLite database path (default: tenancy.db)
             Use ":memory:" for in-memory database
  -region    Default region for new tenants
  -holidays  YAML holiday table

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the status sweep
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run with file database
  ./server -db="./data/tenancy.db"

  # Run in memory with Wellington holidays as the default
  ./server -db=":memory:" -region=WGN

ENVIRONMENT:
  TENANCY_ADDR, TENANCY_DB, TENANCY_REGION, TENANCY_HOLIDAYS,
  TENANCY_SWEEP_INTERVAL, TENANCY_ALLOWED_ORIGINS, TENANCY_LOG_LEVEL

SEE ALSO:
  - config/config.go: Config file and env
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/warp/tenancy-engine/api"
	"github.com/warp/tenancy-engine/calendar"
	"github.com/warp/tenancy-engine/compliance"
	"github.com/warp/tenancy-engine/config"
	"github.com/warp/tenancy-engine/notice"
	"github.com/warp/tenancy-engine/store/sqlite"
	"github.com/warp/tenancy-engine/tenancy"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML config file")
	addr := flag.String("addr", "", "HTTP listen address")
	dbPath := flag.String("db", "", "SQLite database path")
	region := flag.String("region", "", "Default region for new tenants")
	holidays := flag.String("holidays", "", "YAML holiday table")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	// Flags win over file and env
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "db":
			cfg.DB = *dbPath
		case "region":
			cfg.Region = *region
		case "holidays":
			cfg.Holidays = *holidays
		}
	})

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// Initialize store
	store, err := sqlite.New(cfg.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	// Calendar: holiday table first, then everything stored
	var calOpts []calendar.Option
	if cfg.Holidays != "" {
		table, err := calendar.LoadTable(cfg.Holidays)
		if err != nil {
			return err
		}
		if calOpts, err = table.Options(); err != nil {
			return err
		}
		opt, err := table.SyncHolidays(ctx, store)
		if err != nil {
			return err
		}
		calOpts = append(calOpts, opt)
	} else {
		opt, err := calendar.StoredHolidays(ctx, store)
		if err != nil {
			return err
		}
		calOpts = append(calOpts, opt)
	}

	engine := compliance.NewEngine(notice.NewLaw(calendar.New(calOpts...)))
	svc := tenancy.New(store, engine,
		tenancy.WithLogger(logger),
		tenancy.WithMetrics(tenancy.NewMetrics(prometheus.DefaultRegisterer)),
		tenancy.WithDefaultRegion(cfg.Region),
	)

	handler := api.NewHandler(svc, logger)
	handler.DB = store
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		Gatherer:       prometheus.DefaultGatherer,
	})

	sweeper := api.NewStatusSweeper(svc, logger)
	sweeper.CheckInterval = cfg.SweepInterval
	sweeper.Start()
	defer sweeper.Stop()

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Addr, "db", cfg.DB)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")
	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
