package main

import (
	"fmt"
	"log"

	"github.com/cashflow/payment-lifecycle/internal/adapter/primary/http"
	"github.com/cashflow/payment-lifecycle/internal/adapter/secondary/database"
	"github.com/cashflow/payment-lifecycle/internal/adapter/secondary/security"
	"github.com/cashflow/payment-lifecycle/internal/config"
	"github.com/cashflow/payment-lifecycle/internal/constant/model/db"
	"github.com/cashflow/payment-lifecycle/internal/core/service"
)

func main() {
	cfg, err := config.Load("8081")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	dbConn, err := db.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbConn.Close()

	issuer, err := security.NewJWTIssuer(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("Failed to initialize token issuer: %v", err)
	}

	userRepo := database.NewGormUserRepository(dbConn.DB)
	identityService := service.NewIdentityService(userRepo, security.NewBcryptHasher(cfg.BcryptCost), issuer, cfg.JWTExpiresIn)

	e := http.NewEcho()
	http.NewIdentityHandler(identityService).RegisterRoutes(e)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting identity service on %s", addr)
	if err := e.Start(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
