package routes

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/podgraph/backend/internal/queue"
	"github.com/podgraph/backend/internal/server/middleware"
	"github.com/podgraph/backend/pkg/match"
	"github.com/podgraph/backend/pkg/resolve"
)

// ResolveEntitiesHandler runs one synchronous entity resolution batch
// and returns its summary. Meant for small batches and debugging; full
// runs go through the queue. use_llm, use_hybrid and fuzzy_threshold
// reshape the cascade for this request only; clear_cache flushes the
// match cache before the batch starts.
func ResolveEntitiesHandler(c echo.Context) error {
	type request struct {
		BatchSize      int     `json:"batch_size"`
		UseHybrid      *bool   `json:"use_hybrid"`
		UseLLM         *bool   `json:"use_llm"`
		FuzzyThreshold float64 `json:"fuzzy_threshold"`
		ClearCache     bool    `json:"clear_cache"`
	}
	var req request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.BatchSize <= 0 {
		req.BatchSize = 100
	}

	app := c.(*middleware.AppContext).App
	if req.ClearCache && app.Cache != nil {
		app.Cache.Flush()
	}

	resolver := app.Entities
	if req.UseHybrid != nil || req.UseLLM != nil || req.FuzzyThreshold > 0 {
		aiClient := app.AIClient
		if req.UseLLM != nil && !*req.UseLLM {
			aiClient = nil
		}
		var opts []match.Option
		if req.FuzzyThreshold > 0 {
			opts = append(opts, match.WithFuzzyThreshold(req.FuzzyThreshold))
		}
		if req.UseHybrid != nil && !*req.UseHybrid {
			opts = append(opts, match.WithoutFuzzy())
		}
		cascade := match.NewCascade(app.Store, aiClient, app.Cache, opts...)
		resolver = resolve.NewEntityResolver(app.Store, cascade, aiClient)
	}

	result, err := resolver.ResolveBatch(c.Request().Context(), req.BatchSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}

// ResolveRelationshipsHandler runs one synchronous relationship
// resolution batch and returns its summary.
func ResolveRelationshipsHandler(c echo.Context) error {
	type request struct {
		BatchSize int `json:"batch_size"`
	}
	var req request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.BatchSize <= 0 {
		req.BatchSize = 100
	}

	app := c.(*middleware.AppContext).App
	result, err := app.Relationships.ResolveBatch(c.Request().Context(), req.BatchSize)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}

// ResolveRunHandler dispatches a full resolution run to the worker.
func ResolveRunHandler(c echo.Context) error {
	var msg queue.ResolveMessage
	if err := c.Bind(&msg); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	app := c.(*middleware.AppContext).App
	if err := queue.PublishFIFO(app.Queue, queue.ResolveQueue, data); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "queued"})
}
