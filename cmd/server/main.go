// Package main is the entry point for the wallet API server. It
// connects the ledger store and cache, starts the change-signal
// observer, and serves the HTTP API.
package main

import (
	"context"
	"log"
	"time"

	"perka/internal/config"
	"perka/internal/handlers"
	"perka/internal/notifier"
	"perka/internal/repositories"
	walletsvc "perka/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadEnv()

	if err := repositories.InitDB(); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	sqlDB, err := repositories.DB.DB()
	if err != nil {
		log.Fatalf("failed to get database instance: %v", err)
	}
	defer sqlDB.Close()

	sqlDB.SetMaxIdleConns(config.GetIntEnv("DB_MAX_IDLE_CONNS", 10))
	sqlDB.SetMaxOpenConns(config.GetIntEnv("DB_MAX_OPEN_CONNS", 100))
	sqlDB.SetConnMaxLifetime(config.GetDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour))
	sqlDB.SetConnMaxIdleTime(config.GetDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute))

	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}
	defer repositories.CacheService.Close()

	// Change-signal observer: on every ledger mutation, re-derive the
	// affected user's balances and refresh the advisory snapshot.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledgerRepo := repositories.NewWalletLedgerRepository(repositories.DB)
	bonusRepo := repositories.NewBonusLedgerRepository(repositories.DB)
	walletService := walletsvc.NewService(ledgerRepo, bonusRepo, repositories.CacheService)
	changeNotifier := notifier.NewRedisNotifier(repositories.CacheService.Client())
	go notifier.Listen(ctx, changeNotifier.Subscribe(ctx), walletService)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Webhook-Secret",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: true,
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Use("/api/wallet/spend", limiter.New(limiter.Config{
		Max:        30,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(429).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	}))

	handlers.SetupRoutes(app, repositories.DB)

	log.Fatal(app.Listen(":" + config.GetEnv("PORT", "3000")))
}
