package http

import (
	"time"

	"github.com/LerianStudio/lib-gated/gated"
	"github.com/gofiber/fiber/v2"
)

// Health is the liveness endpoint.
func Health(c *fiber.Ctx) error {
	return c.SendString("healthy")
}

// Version returns the VERSION environment variable and the request date.
func Version(c *fiber.Ctx) error {
	return OK(c, fiber.Map{
		"version":     gated.GetenvOrDefault("VERSION", "0.0.0"),
		"requestDate": time.Now().UTC(),
	})
}
