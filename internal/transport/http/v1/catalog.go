package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ListProjects lists the loaded projects.
// GET /v1/projects
func (h *Handler) ListProjects(c echo.Context) error {
	projects, err := h.service.ListProjects(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"projects": projects,
	})
}

// Stats returns the quick counters.
// GET /v1/stats
func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.service.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}
