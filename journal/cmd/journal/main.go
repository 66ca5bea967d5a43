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
	"github.com/redis/go-redis/v9"

	"github.com/clearledger-systems/clearledger-stack/common/logging"
	natsclient "github.com/clearledger-systems/clearledger-stack/common/messaging/nats"
	"github.com/clearledger-systems/clearledger-stack/journal/internal/chainlock"
	"github.com/clearledger-systems/clearledger-stack/journal/internal/config"
	"github.com/clearledger-systems/clearledger-stack/journal/internal/consumer"
	"github.com/clearledger-systems/clearledger-stack/journal/internal/handlers"
	"github.com/clearledger-systems/clearledger-stack/journal/internal/repository"
	"github.com/clearledger-systems/clearledger-stack/journal/internal/server"
	"github.com/clearledger-systems/clearledger-stack/journal/internal/service"
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

	// Choose the chain lock backend
	var locker chainlock.Locker
	switch cfg.Lock.Backend {
	case "redis":
		opts, err := redis.ParseURL(cfg.Lock.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		client := redis.NewClient(opts)
		defer client.Close()

		locker = chainlock.NewRedisLocker(client, chainlock.Config{
			TTL:        cfg.Lock.TTL,
			RetryDelay: cfg.Lock.RetryDelay,
			MaxWait:    cfg.Lock.MaxWait,
		})
		log.Println("Using Redis chain locks")
	default:
		locker = chainlock.NewLocalLocker()
		log.Println("Using local chain locks")
	}

	// Initialize service
	svc := service.NewService(repo, locker, logger)

	// Start the broker consumer
	if cfg.NATS.Enabled {
		natsCfg := natsclient.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.Name = "clearledger-journal"

		client, err := natsclient.NewClient(natsCfg)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer client.Close()

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
		log.Printf("Journal service listening on %s", srv.Addr)
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
