package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/podgraph/backend/internal/server/middleware"
	"github.com/podgraph/backend/pkg/common"
)

// StageEntitiesHandler accepts a batch of raw entity mentions from the
// extraction stage and appends them to the staging inbox.
func StageEntitiesHandler(c echo.Context) error {
	type entityInput struct {
		Name         string `json:"name" validate:"required"`
		Type         string `json:"type" validate:"required"`
		Description  string `json:"description"`
		EpisodeID    string `json:"episode_id" validate:"required"`
		EpisodeTitle string `json:"episode_title"`
	}
	type request struct {
		Entities []entityInput `json:"entities" validate:"required,min=1,dive"`
	}

	var req request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	staged := make([]common.StagedEntity, 0, len(req.Entities))
	for _, in := range req.Entities {
		entityType := common.EntityType(in.Type)
		if !entityType.Valid() {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "unknown entity type: " + in.Type,
			})
		}
		staged = append(staged, common.StagedEntity{
			Name:         in.Name,
			Type:         entityType,
			Description:  in.Description,
			EpisodeID:    in.EpisodeID,
			EpisodeTitle: in.EpisodeTitle,
		})
	}

	app := c.(*middleware.AppContext).App
	count, err := app.Store.EnqueueEntities(c.Request().Context(), staged)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, map[string]int64{"staged": count})
}

// StageRelationshipsHandler accepts a batch of raw relationship
// mentions and appends them to the staging inbox.
func StageRelationshipsHandler(c echo.Context) error {
	type relationshipInput struct {
		SourceName   string `json:"source_name" validate:"required"`
		TargetName   string `json:"target_name" validate:"required"`
		Description  string `json:"description"`
		EpisodeID    string `json:"episode_id" validate:"required"`
		EpisodeTitle string `json:"episode_title"`
	}
	type request struct {
		Relationships []relationshipInput `json:"relationships" validate:"required,min=1,dive"`
	}

	var req request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	staged := make([]common.StagedRelationship, 0, len(req.Relationships))
	for _, in := range req.Relationships {
		staged = append(staged, common.StagedRelationship{
			SourceName:   in.SourceName,
			TargetName:   in.TargetName,
			Description:  in.Description,
			EpisodeID:    in.EpisodeID,
			EpisodeTitle: in.EpisodeTitle,
		})
	}

	app := c.(*middleware.AppContext).App
	count, err := app.Store.EnqueueRelationships(c.Request().Context(), staged)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, map[string]int64{"staged": count})
}
