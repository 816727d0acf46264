package trigger

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/havenapp/mood-engine/internal/handler"
	"github.com/havenapp/mood-engine/internal/middleware"
	"github.com/havenapp/mood-engine/internal/model"
	"github.com/havenapp/mood-engine/internal/repository"
	triggersvc "github.com/havenapp/mood-engine/internal/service/trigger"
)

type Handler struct {
	repo   repository.TriggerRepository
	loader *triggersvc.CatalogLoader
}

func NewHandler(repo repository.TriggerRepository, loader *triggersvc.CatalogLoader) *Handler {
	return &Handler{
		repo:   repo,
		loader: loader,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	triggers := r.Group("/triggers")
	{
		triggers.GET("", h.ListTriggers)
		triggers.PUT("/:id", h.UpsertTrigger)
		triggers.DELETE("/:id", h.DeleteTrigger)
	}
}

// ListTriggers returns the catalog in evaluation order, with any malformed
// definitions reported alongside the valid ones.
func (h *Handler) ListTriggers(c *gin.Context) {
	profileID, ok := middleware.ProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing profile"))
		return
	}

	raw, err := h.repo.List(c.Request.Context(), profileID)
	if err != nil {
		c.Error(err)
		return
	}

	valid, diagnostics := h.loader.Load(raw)
	body := gin.H{"triggers": valid}
	if len(diagnostics) > 0 {
		messages := make([]string, 0, len(diagnostics))
		for _, d := range diagnostics {
			messages = append(messages, d.Message)
		}
		body["excluded"] = messages
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(body))
}

type upsertTriggerRequest struct {
	Kind          model.TriggerKind          `json:"kind" binding:"required"`
	Type          model.NotificationType     `json:"type" binding:"required"`
	Conditions    model.TriggerConditions    `json:"conditions"`
	TitleTemplate string                     `json:"title_template" binding:"required"`
	BodyTemplate  string                     `json:"body_template" binding:"required"`
	Priority      model.NotificationPriority `json:"priority" binding:"required"`
	Enabled       bool                       `json:"enabled"`
	Position      int                        `json:"position"`
}

// UpsertTrigger validates the definition before it is saved, so the
// catalog never gains a rule the loader would later reject.
func (h *Handler) UpsertTrigger(c *gin.Context) {
	profileID, ok := middleware.ProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing profile"))
		return
	}

	triggerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid trigger id"))
		return
	}

	var req upsertTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	t := &model.NotificationTrigger{
		ID:            triggerID,
		Kind:          req.Kind,
		Type:          req.Type,
		Conditions:    req.Conditions,
		TitleTemplate: req.TitleTemplate,
		BodyTemplate:  req.BodyTemplate,
		Priority:      req.Priority,
		Enabled:       req.Enabled,
		Position:      req.Position,
	}

	if _, diagnostics := h.loader.Load([]*model.NotificationTrigger{t}); len(diagnostics) > 0 {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(diagnostics[0].Message))
		return
	}

	if err := h.repo.Upsert(c.Request.Context(), profileID, t); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(t))
}

func (h *Handler) DeleteTrigger(c *gin.Context) {
	profileID, ok := middleware.ProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing profile"))
		return
	}

	triggerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid trigger id"))
		return
	}

	if err := h.repo.Delete(c.Request.Context(), profileID, triggerID); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
