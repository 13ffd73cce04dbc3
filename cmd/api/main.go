package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cashflow/payment-lifecycle/internal/adapter/primary/http"
	"github.com/cashflow/payment-lifecycle/internal/adapter/secondary/cache"
	"github.com/cashflow/payment-lifecycle/internal/adapter/secondary/database"
	"github.com/cashflow/payment-lifecycle/internal/adapter/secondary/identity"
	"github.com/cashflow/payment-lifecycle/internal/adapter/secondary/messaging"
	"github.com/cashflow/payment-lifecycle/internal/config"
	"github.com/cashflow/payment-lifecycle/internal/constant/model/db"
	"github.com/cashflow/payment-lifecycle/internal/core/service"
	"github.com/cashflow/payment-lifecycle/internal/port/output"
)

func main() {
	cfg, err := config.Load("8080")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize secondary adapter: Database
	dbConn, err := db.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbConn.Close()

	// Initialize secondary adapters: Repositories, Cache and Messaging (implement output ports)
	paymentRepo := database.NewGormPaymentRepository(dbConn.DB)
	eventRepo := database.NewGormPaymentEventRepository(dbConn.DB)

	sharedCache, err := newCache(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}

	var msgClient output.PaymentMessaging
	if cfg.EventsEnabled {
		msgClient, err = messaging.NewRabbitMQClient(cfg.RabbitMQURL)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer msgClient.Close()
	}

	validator := identity.NewRestyValidator(cfg.AuthServiceURL, cfg.AuthTimeout)

	// Initialize core services (implement input ports)
	paymentService := service.NewPaymentService(paymentRepo, msgClient, sharedCache, cfg.IdempotencyTTL)
	tokenGateway := service.NewTokenGateway(validator, sharedCache, cfg.TokenCacheTTL())
	eventRecorder := service.NewPaymentEventRecorder(eventRepo)

	// Initialize primary adapter: HTTP handler (uses input ports)
	paymentHandler := http.NewPaymentHandler(paymentService, eventRecorder)

	e := http.NewEcho()
	paymentHandler.RegisterRoutes(e, http.BearerAuth(tokenGateway))

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting payment service on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func newCache(cfg *config.Config) (output.Cache, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendDynamoDB:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := cache.NewDynamoDBClient(ctx, cfg.AWSRegion, cfg.DynamoEndpoint)
		if err != nil {
			return nil, err
		}
		log.Printf("Using DynamoDB cache table %s", cfg.DynamoDBTable)
		return cache.NewDynamoDBCache(client, cfg.DynamoDBTable), nil
	default:
		return cache.NewMemoryCache(time.Minute), nil
	}
}
