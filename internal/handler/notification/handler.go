package notification

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/havenapp/mood-engine/internal/handler"
	"github.com/havenapp/mood-engine/internal/middleware"
	"github.com/havenapp/mood-engine/internal/repository"
	"github.com/havenapp/mood-engine/internal/service/analytics"
)

type Handler struct {
	repo    repository.NotificationRepository
	tracker *analytics.Tracker
}

func NewHandler(repo repository.NotificationRepository, tracker *analytics.Tracker) *Handler {
	return &Handler{
		repo:    repo,
		tracker: tracker,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("", h.ListNotifications)
		notifications.POST("/:id/delivered", h.Delivered)
		notifications.POST("/:id/opened", h.Opened)
		notifications.GET("/analytics", h.Analytics)
	}
}

func (h *Handler) ListNotifications(c *gin.Context) {
	profileID, ok := middleware.ProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing profile"))
		return
	}

	limit := 50
	if limitParam := c.Query("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	notifications, err := h.repo.List(c.Request.Context(), profileID, limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(notifications))
}

// Delivered is the client callback confirming a push reached the device.
// The sink-accept path usually confirms first; the tracker counts whichever
// arrives first and ignores the other.
func (h *Handler) Delivered(c *gin.Context) {
	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid notification id"))
		return
	}

	if err := h.tracker.DeliveryConfirmed(c.Request.Context(), notificationID, time.Now()); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

// Opened records the user tapping the notification. Repeat calls for the
// same id are accepted and ignored.
func (h *Handler) Opened(c *gin.Context) {
	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid notification id"))
		return
	}

	if err := h.tracker.Opened(c.Request.Context(), notificationID, time.Now()); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) Analytics(c *gin.Context) {
	profileID, ok := middleware.ProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing profile"))
		return
	}

	snapshot, err := h.tracker.Snapshot(c.Request.Context(), profileID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"analytics":           snapshot,
		"open_rate":           snapshot.OpenRate(),
		"effectiveness_score": snapshot.EffectivenessScore(),
	}))
}
