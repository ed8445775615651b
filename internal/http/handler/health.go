package handler

import (
	"backend-huella/internal/config"

	"github.com/gofiber/fiber/v2"
)

// Health - Estado de las dependencias (MySQL y Redis). Va detrás de
// basic auth porque lo consume el monitoreo, no el frontend.
func Health(c *fiber.Ctx) error {
	dbOK := config.DB.Ping() == nil
	redisOK := config.Redis.Ping(config.Ctx).Err() == nil

	status := fiber.StatusOK
	if !dbOK || !redisOK {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"mysql": dbOK,
		"redis": redisOK,
	})
}
