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

	"github.com/clearledger-systems/clearledger-stack/common/logging"
	natsclient "github.com/clearledger-systems/clearledger-stack/common/messaging/nats"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/config"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/consumer"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/handlers"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/remitclient"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/repository"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/server"
	"github.com/clearledger-systems/clearledger-stack/recon/internal/service"
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

	// Remit service client
	remit := remitclient.NewClient(cfg.Remit.URL, cfg.Remit.Timeout)

	// Connect to NATS
	var client *natsclient.Client
	if cfg.NATS.Enabled {
		natsCfg := natsclient.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.Name = "clearledger-recon"

		client, err = natsclient.NewClient(natsCfg)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer client.Close()
	}

	// Initialize service
	var svc *service.Service
	if client != nil {
		svc = service.NewService(repo, remit, client, cfg.Reconciliation.VarianceThresholdMinor, logger)
	} else {
		svc = service.NewService(repo, remit, nil, cfg.Reconciliation.VarianceThresholdMinor, logger)
	}

	// Reconcile automatically when cycles lock
	if client != nil {
		cons := consumer.NewConsumer(client, svc)
		if err := cons.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start consumer: %v", err)
		}
		defer cons.Stop()
	}

	// Initialize handlers and router
	handler := handlers.NewHandler(svc)
	router := server.NewRouter(handler)

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
		log.Printf("Recon service listening on %s", srv.Addr)
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
