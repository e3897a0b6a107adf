package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/podgraph/backend/internal/server/middleware"
)

// GetStagingStatsHandler reports pending and processed mention counts.
func GetStagingStatsHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	stats, err := app.Store.StagingStats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, stats)
}
