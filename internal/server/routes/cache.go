package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/podgraph/backend/internal/server/middleware"
)

// GetCacheStatsHandler reports key count and hit/miss counters of the
// match cache.
func GetCacheStatsHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	return c.JSON(http.StatusOK, app.Cache.Stats())
}

// FlushCacheHandler drops every cached match result and LLM verdict.
func FlushCacheHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App
	app.Cache.Flush()
	return c.JSON(http.StatusOK, map[string]string{"status": "flushed"})
}
