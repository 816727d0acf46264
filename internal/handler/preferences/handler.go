package preferences

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/havenapp/mood-engine/internal/handler"
	"github.com/havenapp/mood-engine/internal/middleware"
	"github.com/havenapp/mood-engine/internal/model"
	"github.com/havenapp/mood-engine/internal/repository"
)

type Handler struct {
	repo repository.PreferencesRepository
}

func NewHandler(repo repository.PreferencesRepository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	prefs := r.Group("/preferences")
	{
		prefs.GET("", h.GetPreferences)
		prefs.PUT("", h.UpdatePreferences)
	}
}

func (h *Handler) GetPreferences(c *gin.Context) {
	profileID, ok := middleware.ProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing profile"))
		return
	}

	prefs, err := h.repo.Load(c.Request.Context(), profileID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(prefs))
}

// UpdatePreferences replaces the whole preference document. Partial
// updates are a client concern: read, modify, put back.
func (h *Handler) UpdatePreferences(c *gin.Context) {
	profileID, ok := middleware.ProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing profile"))
		return
	}

	var prefs model.NotificationPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := validatePreferences(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.repo.Save(c.Request.Context(), profileID, &prefs); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(&prefs))
}
