package api

import (
	"database/sql"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	sessionDB *sql.DB
	redis     *redis.Client
}

func NewHealthHandler(sessionDB *sql.DB, redis *redis.Client) *HealthHandler {
	return &HealthHandler{
		sessionDB: sessionDB,
		redis:     redis,
	}
}

func (h *HealthHandler) Healthy(c *fiber.Ctx) error {
	// The directory is external and may flap; only the dependencies this
	// process owns gate readiness.
	if err := h.sessionDB.PingContext(c.Context()); err != nil {
		slog.Error("Session database connection failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "unhealthy",
			"message": "Session database connection failed",
		})
	}

	if err := h.redis.Ping(c.Context()).Err(); err != nil {
		slog.Error("Redis connection failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "unhealthy",
			"message": "Redis connection failed",
		})
	}

	return c.JSON(fiber.Map{
		"status":  "healthy",
		"message": "Service is healthy",
	})
}
