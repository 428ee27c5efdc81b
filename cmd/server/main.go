/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the commission dashboard API server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and load config (file + COMMISSION_* env)
  2. Build the zap logger
  3. Open the workspace store (SQLite or memory)
  4. Create the calculator and API handler
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config file (default: commission.yaml, optional)
  -port    HTTP server port, overrides config
  -db      SQLite database path, overrides config
           Use ":memory:" for in-memory database
  -demo    Load the field-sales demo dataset into an empty workspace

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/commission.db"

  # Run with in-memory store and demo data
  COMMISSION_STORE_DRIVER=memory ./server -demo

SEE ALSO:
  - config/config.go: Configuration sources
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/commission-engine/api"
	"github.com/warp/commission-engine/compensation"
	compstore "github.com/warp/commission-engine/compensation/store"
	"github.com/warp/commission-engine/config"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/logging"
	"github.com/warp/commission-engine/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	configPath := flag.String("config", "commission.yaml", "YAML config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	demo := flag.Bool("demo", false, "Load the demo dataset into an empty workspace")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *port != 0 {
		cfg.HTTP.Port = *port
	}
	if *dbPath != "" {
		cfg.Store.Driver = config.DriverSQLite
		cfg.Store.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	// Initialize store
	store, closeStore, err := openStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer closeStore()

	// Initialize handler
	calc := compensation.NewCalculator(logger.Named("engine"))
	calc.Workers = cfg.Engine.Workers

	handler := api.NewHandler(store, calc, logger.Named("api"))
	spif, gap := cfg.Engine.SPIFRate, cfg.Engine.MinTierGap
	handler.Defaults = factory.SettingsJSON{
		SPIFRate:             &spif,
		FiscalYearStartMonth: cfg.Engine.FiscalYearStartMonth,
		MinTierGap:           &gap,
	}

	if *demo {
		if err := seedDemo(context.Background(), store, handler); err != nil {
			logger.Warn("failed to load demo dataset", zap.Error(err))
		}
	}

	// Create router
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Logger:         logger.Named("http"),
	})

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.HTTP.Port),
			zap.String("store", cfg.Store.Driver),
			zap.Int("workers", calc.Workers),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func openStore(cfg config.StoreConfig) (compensation.WorkspaceStore, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return compstore.NewMemory(), func() {}, nil
	default:
		s, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
}

// seedDemo loads the demo dataset only when the workspace has no plans.
func seedDemo(ctx context.Context, store compensation.WorkspaceStore, h *api.Handler) error {
	plans, err := store.ListPlans(ctx)
	if err != nil || len(plans) > 0 {
		return err
	}
	return h.LoadDataset(ctx, "field-sales")
}
