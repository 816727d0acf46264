package trend

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/havenapp/mood-engine/internal/handler"
	"github.com/havenapp/mood-engine/internal/middleware"
	"github.com/havenapp/mood-engine/internal/service/evaluation"
)

type Handler struct {
	evaluator *evaluation.Service
}

func NewHandler(evaluator *evaluation.Service) *Handler {
	return &Handler{evaluator: evaluator}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/trend", h.CurrentTrend)
}

func (h *Handler) CurrentTrend(c *gin.Context) {
	profileID, ok := middleware.ProfileID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing profile"))
		return
	}

	t, err := h.evaluator.CurrentTrend(c.Request.Context(), profileID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(t))
}
