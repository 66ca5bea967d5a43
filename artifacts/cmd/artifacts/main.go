package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/clearledger-systems/clearledger-stack/artifacts/internal/config"
	"github.com/clearledger-systems/clearledger-stack/artifacts/internal/fetcher"
	"github.com/clearledger-systems/clearledger-stack/artifacts/internal/handlers"
	"github.com/clearledger-systems/clearledger-stack/artifacts/internal/repository"
	"github.com/clearledger-systems/clearledger-stack/artifacts/internal/server"
	"github.com/clearledger-systems/clearledger-stack/artifacts/internal/service"
	"github.com/clearledger-systems/clearledger-stack/common/logging"
	"github.com/clearledger-systems/clearledger-stack/common/messaging"
	natsclient "github.com/clearledger-systems/clearledger-stack/common/messaging/nats"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(logger)

	// Run database migrations
	m, err := migrate.New(cfg.Database.MigrationsPath, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to initialize migrations: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Initialize repository
	repo, err := repository.NewPostgresRepository(context.Background(), cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer repo.Close()

	// Connect to NATS for audit event publishing
	var publisher messaging.Publisher
	if cfg.NATS.Enabled {
		natsCfg := natsclient.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.Name = "clearledger-artifacts"

		client, err := natsclient.NewClient(natsCfg)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer client.Close()
		publisher = client
	}

	// Initialize service
	fetch := fetcher.NewHTTPFetcher(cfg.Fetcher.Timeout, cfg.Fetcher.MaxSizeBytes)
	svc := service.NewService(repo, fetch, publisher, logger)

	// Initialize handlers and router
	handler := handlers.NewHandler(svc)
	router := server.NewRouter(handler, cfg.Auth.JWTSecret)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Artifacts service listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
}
