package middleware

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/podgraph/backend/pkg/ai"
	"github.com/podgraph/backend/pkg/cache"
	"github.com/podgraph/backend/pkg/resolve"
	"github.com/podgraph/backend/pkg/store"
)

// App bundles the shared dependencies handlers need: the database pool,
// the queue channel for dispatching background runs, the storage layer,
// both resolvers, the match model client, and the match cache.
type App struct {
	DBConn        *pgxpool.Pool
	Queue         *amqp091.Channel
	Store         store.ResolverStorage
	Entities      *resolve.EntityResolver
	Relationships *resolve.RelationshipResolver
	Runner        *resolve.Runner
	AIClient      ai.ResolverAIClient
	Cache         *cache.Cache
	MasterAPIKey  string
}

// AppContext carries App through the echo request chain.
type AppContext struct {
	echo.Context
	App *App
}

// AppContextMiddleware wraps every request context with the shared App.
func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{c, app})
		}
	}
}
