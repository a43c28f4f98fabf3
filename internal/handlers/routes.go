// Package handlers wires the HTTP surface of the wallet service.
package handlers

import (
	"perka/internal/middleware"
	"perka/internal/models"
	"perka/internal/notifier"
	"perka/internal/repositories"
	"perka/internal/services/spend"
	"perka/internal/services/topup"
	"perka/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRoutes builds the repositories and services and registers all
// application routes.
func SetupRoutes(app *fiber.App, db *gorm.DB) {
	ledgerRepo := repositories.NewWalletLedgerRepository(db)
	bonusRepo := repositories.NewBonusLedgerRepository(db)
	packageRepo := repositories.NewPackageRepository(db)

	publisher := notifier.NewRedisNotifier(repositories.CacheService.Client())

	walletService := wallet.NewService(ledgerRepo, bonusRepo, repositories.CacheService)
	spendService := spend.NewService(ledgerRepo, publisher)
	topupService := topup.NewService(ledgerRepo, bonusRepo, packageRepo, publisher)

	walletHandler := NewWalletHandler(walletService, spendService, topupService)
	paymentHandler := NewPaymentHandler(topupService)

	api := app.Group("/api")

	api.Get("/health", HealthCheck)
	api.Get("/packages", walletHandler.ListPackages)
	api.Post("/webhooks/payment", paymentHandler.HandleNotification)

	walletGroup := api.Group("/wallet", middleware.Auth())
	walletGroup.Get("/", middleware.RequirePermission(models.PermissionWalletRead), walletHandler.GetWallet)
	walletGroup.Get("/transactions", middleware.RequirePermission(models.PermissionWalletRead), walletHandler.GetTransactions)
	walletGroup.Get("/bonus", middleware.RequirePermission(models.PermissionWalletRead), walletHandler.GetBonusTransactions)
	walletGroup.Post("/spend", middleware.RequirePermission(models.PermissionWalletWrite), walletHandler.Spend)
	walletGroup.Post("/topup", middleware.RequirePermission(models.PermissionWalletWrite), walletHandler.InitiateTopup)
}
