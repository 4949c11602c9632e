/**
 * @description
 * Entry point for the identity-service. Wires configuration, the PostgreSQL
 * pool, the ledger-service client, the optional RabbitMQ producer, the user
 * repository, the application service and the HTTP router, then serves with
 * graceful shutdown.
 */
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/paylane/wallet-platform/internal/identity/api"
	"github.com/paylane/wallet-platform/internal/identity/app"
	"github.com/paylane/wallet-platform/internal/identity/config"
	"github.com/paylane/wallet-platform/internal/identity/store"
	"github.com/paylane/wallet-platform/pkg/rabbitmq"
	"github.com/paylane/wallet-platform/pkg/walletclient"
)

func main() {
	// Load .env for local development. In production, env vars are set directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to parse database URL: %v", err)
	}
	dbConfig.MaxConns = 10
	dbConfig.MinConns = 2
	dbConfig.MaxConnLifetime = 30 * time.Minute
	dbConfig.MaxConnIdleTime = 5 * time.Minute
	dbConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer dbpool.Close()
	log.Println("Database connection established")

	repo := store.NewPostgresUserRepository(dbpool)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Unable to ensure schema: %v", err)
	}

	var producer rabbitmq.Publisher
	if cfg.RabbitMQURL == "" {
		producer = &rabbitmq.EventProducerFallback{}
	} else if p, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL); err != nil {
		log.Printf("level=warn component=main msg=\"RabbitMQ unavailable at startup; continuing without MQ\" err=%v", err)
		producer = &rabbitmq.EventProducerFallback{}
	} else {
		producer = p
		defer producer.Close()
		log.Println("RabbitMQ producer connected")
	}

	walletClient := walletclient.NewClient(cfg.WalletServiceURL, cfg.InternalJWTSecret)

	service := app.NewService(repo, walletClient, producer, cfg.ExternalJWTSecret)
	handlers := api.NewIdentityHandlers(service)
	router := api.IdentityRoutes(handlers, cfg.ExternalJWTSecret)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Identity Service running on port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down identity-service")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
}
