package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oss-insight/repo-health-monitor/internal/api"
	"github.com/oss-insight/repo-health-monitor/internal/config"
	"github.com/oss-insight/repo-health-monitor/internal/contributor"
	"github.com/oss-insight/repo-health-monitor/internal/db"
	"github.com/oss-insight/repo-health-monitor/internal/metrics"
	"github.com/oss-insight/repo-health-monitor/internal/search"

	_ "github.com/oss-insight/repo-health-monitor/docs"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	logger.SetOutput(os.Stdout)

	// Load configuration with defaults
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate minimum required config
	if cfg.Search.URL == "" {
		logger.Fatal("Missing required configuration (SEARCH_URL must be set)")
	}

	// Snapshot persistence is optional; without a connection string the
	// snapshot endpoints report 503 and everything else still works.
	var store db.Store
	if cfg.DBConnectionString != "" {
		pgStore, err := db.NewPostgresStore(cfg.DBConnectionString)
		if err != nil {
			logger.Fatalf("Failed to initialize database: %v", err)
		}
		defer pgStore.Close()

		// Run migrations with retry logic
		if err := retry(3, 5*time.Second, func() error {
			return pgStore.Migrate()
		}); err != nil {
			logger.Fatalf("Failed to run migrations after retries: %v", err)
		}
		store = pgStore
	} else {
		logger.Warn("DB_CONNECTION_STRING not set, snapshot persistence disabled")
	}

	// Initialize services
	searchClient := search.NewClient(cfg.Search.URL, cfg.Search.Token, logger,
		search.WithRetryConfig(cfg.Search.Retry.MaxRetries, cfg.Search.Retry.InitialBackoff, cfg.Search.Retry.MaxBackoff))
	contributorReader := contributor.NewReader(searchClient, cfg.Indices.Contributors, logger)
	aggregator := metrics.New(searchClient, contributorReader, metrics.Indices{
		Git:          cfg.Indices.Git,
		Repo:         cfg.Indices.Repo,
		Contributors: cfg.Indices.Contributors,
		PR:           cfg.Indices.PR,
	}, logger)
	apiHandler := api.NewHandler(aggregator, store, logger)

	// Setup router
	router := api.SetupRouter(apiHandler)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	logger.Info("Server exited properly")
}

// retry retries a function up to a certain number of attempts with a delay between attempts
func retry(attempts int, sleep time.Duration, fn func() error) error {
	if err := fn(); err != nil {
		if attempts--; attempts > 0 {
			time.Sleep(sleep)
			return retry(attempts, sleep, fn)
		}
		return err
	}
	return nil
}
