package alert

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/havenapp/mood-engine/internal/handler"
	"github.com/havenapp/mood-engine/internal/middleware"
	"github.com/havenapp/mood-engine/internal/repository"
)

type Handler struct {
	repo repository.AlertRepository
}

func NewHandler(repo repository.AlertRepository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	alerts := r.Group("/alerts")
	{
		alerts.GET("", h.ListAlerts)
		alerts.GET("/latest", h.LatestAlert)
	}
}

func (h *Handler) ListAlerts(c *gin.Context) {
	profileID, ok := middleware.ProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing profile"))
		return
	}

	limit := 20
	if limitParam := c.Query("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	alerts, err := h.repo.List(c.Request.Context(), profileID, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(alerts))
}

func (h *Handler) LatestAlert(c *gin.Context) {
	profileID, ok := middleware.ProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing profile"))
		return
	}

	latest, err := h.repo.Latest(c.Request.Context(), profileID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(latest))
}
