package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/podgraph/backend/internal/queue"
	mid "github.com/podgraph/backend/internal/server/middleware"
	"github.com/podgraph/backend/internal/util"
	"github.com/podgraph/backend/pkg/ai"
	oai "github.com/podgraph/backend/pkg/ai/ollama"
	gai "github.com/podgraph/backend/pkg/ai/openai"
	"github.com/podgraph/backend/pkg/cache"
	"github.com/podgraph/backend/pkg/logger"
	"github.com/podgraph/backend/pkg/match"
	"github.com/podgraph/backend/pkg/resolve"
	pgstore "github.com/podgraph/backend/pkg/store/pgx"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// NewAIClient builds the match model client for the configured adapter.
// Returns nil when no adapter is configured, which disables the LLM
// matching step.
func NewAIClient() ai.ResolverAIClient {
	switch util.GetEnv("AI_ADAPTER") {
	case "ollama":
		client, err := oai.NewResolverOllamaClient(oai.NewResolverOllamaClientParams{
			MatchModel: util.GetEnv("AI_MATCH_MODEL"),
			BaseURL:    util.GetEnv("AI_CHAT_URL"),
			ApiKey:     util.GetEnv("AI_CHAT_KEY"),
		})
		if err != nil {
			logger.Fatal("Failed to create Ollama client", "err", err)
		}
		return client
	case "openai":
		return gai.NewResolverOpenAIClient(gai.NewResolverOpenAIClientParams{
			MatchModel: util.GetEnv("AI_MATCH_MODEL"),
			ChatURL:    util.GetEnv("AI_CHAT_URL"),
			ChatKey:    util.GetEnvString("AI_CHAT_KEY", util.GetEnv("OPENAI_API_KEY")),
		})
	default:
		logger.Info("No AI adapter configured, model matching disabled")
		return nil
	}
}

// RunMigrations applies pending schema migrations.
func RunMigrations(databaseURL string) {
	m, err := migrate.New(util.GetEnvString("MIGRATIONS_URL", "file://migrations"), databaseURL)
	if err != nil {
		logger.Fatal("Failed to init migrations", "err", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Fatal("Failed to run migrations", "err", err)
	}
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	databaseURL := util.GetEnv("DATABASE_URL")
	RunMigrations(databaseURL)

	conn, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	if err := queue.SetupQueues(ch, queue.Queues); err != nil {
		logger.Fatal("Failed to setup queues", "err", err)
	}

	aiClient := NewAIClient()
	matchCache := cache.New(time.Duration(util.GetEnvInt("CACHE_TTL_MINUTES", 30)) * time.Minute)
	st := pgstore.NewResolverDBStorage(conn)
	cascade := match.NewCascade(st, aiClient, matchCache,
		match.WithMaxRetries(util.GetEnvInt("AI_MAX_RETRIES", 3)))
	entities := resolve.NewEntityResolver(st, cascade, aiClient)
	relationships := resolve.NewRelationshipResolver(st, cascade, nil)

	app := &mid.App{
		DBConn:        conn,
		Queue:         ch,
		Store:         st,
		Entities:      entities,
		Relationships: relationships,
		Runner:        resolve.NewRunner(entities, relationships, matchCache),
		AIClient:      aiClient,
		Cache:         matchCache,
		MasterAPIKey:  util.GetEnv("MASTER_API_KEY"),
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(echomw.CORS())
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("16M"))

	RegisterRoutes(e)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
