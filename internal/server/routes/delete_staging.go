package routes

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/podgraph/backend/internal/server/middleware"
)

// PurgeStagingHandler deletes processed staging rows older than the
// RFC 3339 timestamp in the "before" query parameter.
func PurgeStagingHandler(c echo.Context) error {
	before := c.QueryParam("before")
	if before == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "missing required query parameter: before"})
	}
	cutoff, err := time.Parse(time.RFC3339, before)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "before must be an RFC 3339 timestamp"})
	}

	app := c.(*middleware.AppContext).App
	purged, err := app.Store.PurgeProcessedBefore(c.Request().Context(), cutoff)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]int64{"purged": purged})
}
