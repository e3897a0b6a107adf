package server

import (
	"github.com/labstack/echo/v4"

	"github.com/podgraph/backend/internal/server/middleware"
	"github.com/podgraph/backend/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Staging inbox routes
	apiRoutes.POST("/staging/entities", routes.StageEntitiesHandler)
	apiRoutes.POST("/staging/relationships", routes.StageRelationshipsHandler)
	apiRoutes.GET("/staging/stats", routes.GetStagingStatsHandler)
	apiRoutes.DELETE("/staging/processed", routes.PurgeStagingHandler)

	// Resolution routes
	apiRoutes.POST("/resolve/entities", routes.ResolveEntitiesHandler)
	apiRoutes.POST("/resolve/relationships", routes.ResolveRelationshipsHandler)
	apiRoutes.POST("/resolve/run", routes.ResolveRunHandler)

	// Cache routes
	apiRoutes.GET("/cache/stats", routes.GetCacheStatsHandler)
	apiRoutes.POST("/cache/flush", routes.FlushCacheHandler)
}
