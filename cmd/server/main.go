/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the bond engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment)
  2. Parse command-line flags (override configuration)
  3. Initialize SQLite store
  4. Create API handler and restore the last saved rate table
  5. Start the snapshot scheduler
  6. Configure HTTP router
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: SERVER_PORT or 8080)
  -db      SQLite database path (default: DB_PATH or bonds.db)
           Use ":memory:" for in-memory database
  -snapshot-interval
           How often changed rates are saved (default: 5m, 0 disables)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Save pending rate changes
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/bonds.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

ENVIRONMENT:
  SERVER_PORT, SERVER_HOST, DB_PATH, CORS_ALLOWED_ORIGINS, DEBUG
  (see config/config.go)

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
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
	"syscall"
	"time"

	"github.com/warp/bond-engine/api"
	"github.com/warp/bond-engine/config"
	"github.com/warp/bond-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Flags
	port := flag.Int("port", cfg.Server.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.Database.Path, "SQLite database path")
	interval := flag.Duration("snapshot-interval", 5*time.Minute, "How often changed rates are saved, 0 disables")
	flag.Parse()
	cfg.Server.Port = *port
	cfg.Database.Path = *dbPath

	logger := config.NewLogger(os.Stdout, cfg.Debug)
	slog.SetDefault(logger)

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to initialize database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store)
	handler.Logger = logger

	// Restore the last saved rate table
	if err := handler.LoadRates(context.Background()); err != nil {
		logger.Warn("failed to restore rates", "error", err)
	}

	scheduler := api.NewSnapshotScheduler(store, handler)
	scheduler.CheckInterval = *interval
	scheduler.Enabled = *interval > 0
	scheduler.Start()

	// Create router
	router := api.NewRouter(handler, cfg.CORS.AllowedOrigins)

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "addr", server.Addr, "db", cfg.Database.Path, "debug", cfg.Debug)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	scheduler.Stop()

	logger.Info("server stopped")
}
