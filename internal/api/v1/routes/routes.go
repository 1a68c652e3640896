// Package v1 registers the versioned API routes.
package v1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nclamvn/prismy-ultimate/internal/api/v1/handlers"
)

// SetupRoutes configures all the v1 routes
func SetupRoutes(router fiber.Router, h *handlers.JobHandler) {
	router.Post("/translate", h.Translate)
	router.Get("/status/:id", h.Status)
	router.Get("/queue/status", h.QueueStatus)
	router.Post("/cancel/:id", h.Cancel)
	router.Get("/download/:id", h.Download)
}

// Register registers the v1 routes
func Register(app *fiber.App, h *handlers.JobHandler) {
	v1Group := app.Group("/api/v1")
	SetupRoutes(v1Group, h)
}
