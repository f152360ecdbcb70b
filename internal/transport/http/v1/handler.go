// Package v1 provides the versioned HTTP handlers.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/AbhigyanVE/ScrumMaster/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Chat API
	e.POST("/v1/sessions/:session_id/query", h.Query)
	e.GET("/v1/sessions/:session_id/context", h.GetContext)
	e.DELETE("/v1/sessions/:session_id/context", h.ResetContext)
	e.GET("/v1/sessions/:session_id/events", h.GetEvents)

	// Catalog API
	e.GET("/v1/projects", h.ListProjects)
	e.GET("/v1/stats", h.Stats)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
