package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/cashflow/payment-lifecycle/internal/adapter/secondary/database"
	"github.com/cashflow/payment-lifecycle/internal/adapter/secondary/messaging"
	"github.com/cashflow/payment-lifecycle/internal/config"
	"github.com/cashflow/payment-lifecycle/internal/constant/model/db"
	"github.com/cashflow/payment-lifecycle/internal/core"
	"github.com/cashflow/payment-lifecycle/internal/core/service"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize secondary adapter: Database
	dbConn, err := db.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbConn.Close()

	// Initialize secondary adapter: Repository (implements output port)
	eventRepo := database.NewGormPaymentEventRepository(dbConn.DB)

	// Initialize core service: audit trail recorder
	recorder := service.NewPaymentEventRecorder(eventRepo)

	// Initialize secondary adapter: Messaging (concrete type for worker)
	msgClient, err := messaging.NewRabbitMQClientConcrete(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer msgClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start consuming messages
	err = msgClient.ConsumePaymentEvents(func(event core.PaymentEvent) error {
		return recorder.RecordEvent(ctx, event)
	})
	if err != nil {
		log.Fatalf("Failed to start consuming messages: %v", err)
	}

	log.Println("Payment event worker started. Press CTRL+C to exit.")

	<-ctx.Done()

	log.Println("Shutting down worker...")
}
