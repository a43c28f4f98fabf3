package handlers

import (
	"perka/internal/repositories"
	"perka/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck reports whether the ledger store and cache are reachable.
func HealthCheck(c *fiber.Ctx) error {
	status := fiber.Map{"status": "ok"}

	sqlDB, err := repositories.DB.DB()
	if err != nil || sqlDB.Ping() != nil {
		status["status"] = "degraded"
		status["database"] = "unreachable"
	}

	if repositories.CacheService != nil {
		if err := repositories.CacheService.HealthCheck(c.Context()); err != nil {
			status["status"] = "degraded"
			status["cache"] = "unreachable"
		}
	}

	if status["status"] != "ok" {
		return utils.Respond(c, fiber.StatusServiceUnavailable, status)
	}
	return utils.Success(c, status)
}
