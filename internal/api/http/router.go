package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/matter-service/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Matters *handlers.MattersHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	matters := app.Group("/api/v1/matters")
	matters.Get("/", cfg.Matters.ListMatters)
	matters.Get("/:id", cfg.Matters.GetMatter)
	matters.Get("/:id/cycle-time", cfg.Matters.GetCycleTime)
	matters.Get("/:id/history", cfg.Matters.ListHistory)
	matters.Patch("/:id/fields/:fieldId", cfg.Matters.UpdateField)
}
