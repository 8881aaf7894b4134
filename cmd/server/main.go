/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the roster engine server: configuration, logging,
  storage, HTTP router, background shift generation, graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (config.yaml + environment)
  2. Initialize zap logger
  3. Open SQLite store
  4. Create API handler and router
  5. Start the generation scheduler (if enabled)
  6. Serve HTTP with graceful shutdown

CONFIGURATION (environment or config.yaml):
  APP_PORT                   HTTP port (default: 8080)
  DATABASE_PATH              SQLite path, ":memory:" for in-memory
  ENV                        development | production
  CORS_ORIGINS               Comma-separated allowed origins
  AUTO_GENERATE              Enable the background shift generator
  GENERATE_INTERVAL_MINUTES  Generator check interval

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop the scheduler, stop accepting connections, wait
  up to 30s for active requests, close the database.

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fitgrid/roster-engine/api"
	"github.com/fitgrid/roster-engine/config"
	"github.com/fitgrid/roster-engine/logging"
	"github.com/fitgrid/roster-engine/store/sqlite"
)

func main() {
	config.LoadConfig()
	logging.InitializeLogger()
	logger := logging.GetLogger()
	defer logger.Sync()

	store, err := sqlite.New(config.AppConfig.DatabasePath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	handler := api.NewHandler(store, logger)
	router := api.NewRouter(handler)

	var scheduler *api.GenerationScheduler
	if config.AppConfig.AutoGenerate {
		scheduler = api.NewGenerationScheduler(handler.Service, store, logger)
		scheduler.CheckInterval = time.Duration(config.AppConfig.GenerateIntervalMinutes) * time.Minute
		scheduler.Start()
	}

	server := &http.Server{
		Addr:         ":" + config.AppConfig.AppPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("port", config.AppConfig.AppPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
