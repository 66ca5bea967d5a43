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

	"github.com/clearledger-systems/clearledger-stack/common/hashchain"
	"github.com/clearledger-systems/clearledger-stack/common/logging"
	natsclient "github.com/clearledger-systems/clearledger-stack/common/messaging/nats"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/config"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/dlq"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/handlers"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/pipeline"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/repository"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/server"
	"github.com/clearledger-systems/clearledger-stack/ingest/internal/service"
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

	// Connect to NATS
	var (
		publisher *natsclient.Client
		queue     dlq.Queue = dlq.NopQueue{}
		pipe      *pipeline.Pipeline
	)
	if cfg.NATS.Enabled {
		natsCfg := natsclient.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.Name = "clearledger-ingest"

		publisher, err = natsclient.NewClient(natsCfg)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer publisher.Close()

		if cfg.DLQ.Enabled {
			js, err := natsclient.NewJetStreamClient(natsCfg)
			if err != nil {
				log.Fatalf("Failed to create JetStream client: %v", err)
			}
			defer js.Close()

			queue, err = dlq.NewJetStreamQueue(context.Background(), js)
			if err != nil {
				log.Fatalf("Failed to create DLQ: %v", err)
			}
		}
	}

	// Initialize receipt signer
	var signer *hashchain.ReceiptSigner
	if cfg.Receipt.SigningSecret != "" {
		signer = hashchain.NewReceiptSigner(cfg.Receipt.SigningSecret)
	}

	// Initialize service
	var svc *service.Service
	if publisher != nil {
		svc = service.NewService(repo, signer, publisher, logger)
	} else {
		svc = service.NewService(repo, signer, nil, logger)
	}

	// Start the broker pipeline
	if publisher != nil {
		pipe = pipeline.NewPipeline(publisher, svc, queue, pipeline.Config{
			MaxRetries: cfg.Pipeline.MaxRetries,
			RetryDelay: cfg.Pipeline.RetryDelay,
		})
		if err := pipe.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start pipeline: %v", err)
		}
		defer pipe.Stop()
	}

	// Initialize handlers and router
	handler := handlers.NewHandler(svc, queue)
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
		log.Printf("Ingest service listening on %s", srv.Addr)
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
