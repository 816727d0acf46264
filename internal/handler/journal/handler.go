package journal

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/havenapp/mood-engine/internal/handler"
	"github.com/havenapp/mood-engine/internal/middleware"
	"github.com/havenapp/mood-engine/internal/service/evaluation"
	"github.com/havenapp/mood-engine/internal/service/journal"
)

type Handler struct {
	service   *journal.Service
	evaluator *evaluation.Service
}

func NewHandler(service *journal.Service, evaluator *evaluation.Service) *Handler {
	return &Handler{
		service:   service,
		evaluator: evaluator,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	entries := r.Group("/journal")
	{
		entries.POST("", h.AppendEntry)
		entries.GET("", h.ListEntries)
		entries.GET("/count", h.Count)
		entries.DELETE("/:id", h.DeleteEntry)
	}
}

type appendEntryRequest struct {
	EntryDate        time.Time `json:"entry_date" binding:"required"`
	Score            int       `json:"score" binding:"required,min=1,max=10"`
	Note             string    `json:"note"`
	WarningSigns     []string  `json:"warning_signs"`
	CopingStrategies []string  `json:"coping_strategies"`
}

// AppendEntry writes a new mood entry and runs an evaluation pass on it.
func (h *Handler) AppendEntry(c *gin.Context) {
	profileID, ok := middleware.ProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing profile"))
		return
	}

	var req appendEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	entry, err := h.service.Append(c.Request.Context(), &journal.AppendRequest{
		ProfileID:        profileID,
		EntryDate:        req.EntryDate,
		Score:            req.Score,
		Note:             req.Note,
		WarningSigns:     req.WarningSigns,
		CopingStrategies: req.CopingStrategies,
	})
	if err != nil {
		c.Error(err)
		return
	}

	result, err := h.evaluator.Evaluate(c.Request.Context(), evaluation.Event{
		Kind:      evaluation.EventEntryAdded,
		ProfileID: profileID,
		Now:       time.Now(),
	})
	if err != nil {
		// The entry is safely journaled; the pass retries on the next event.
		c.JSON(http.StatusCreated, handler.NewSuccessResponse(gin.H{
			"entry":            entry,
			"evaluation_error": err.Error(),
		}))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(gin.H{
		"entry": entry,
		"trend": result.Trend,
		"alert": result.Alert,
	}))
}

func (h *Handler) ListEntries(c *gin.Context) {
	profileID, ok := middleware.ProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing profile"))
		return
	}

	if sinceParam := c.Query("since"); sinceParam != "" {
		since, err := time.Parse(time.RFC3339, sinceParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("since must be RFC3339"))
			return
		}
		entries, err := h.service.ListSince(c.Request.Context(), profileID, since)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, handler.NewSuccessResponse(entries))
		return
	}

	limit := 30
	if limitParam := c.Query("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	entries, err := h.service.ListRecent(c.Request.Context(), profileID, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(entries))
}

func (h *Handler) Count(c *gin.Context) {
	profileID, ok := middleware.ProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing profile"))
		return
	}

	count, err := h.service.Count(c.Request.Context(), profileID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"count": count}))
}

func (h *Handler) DeleteEntry(c *gin.Context) {
	profileID, ok := middleware.ProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing profile"))
		return
	}

	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid entry id"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), profileID, entryID); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
