package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/havenapp/mood-engine/internal/handler"
	"github.com/havenapp/mood-engine/internal/service/auth"
	"github.com/havenapp/mood-engine/pkg/security"
)

type Handler struct {
	service *auth.Service
}

func NewHandler(service *auth.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
}

type registerRequest struct {
	Name           string `json:"name" binding:"required"`
	AccessKey      string `json:"access_key" binding:"required"`
	ContactEmail   string `json:"contact_email" binding:"omitempty,email"`
	EmergencyEmail string `json:"emergency_email" binding:"omitempty,email"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	if len(req.AccessKey) < security.MinAccessKeyLen {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("access key too short"))
		return
	}

	profile, err := h.service.Register(c.Request.Context(), &auth.RegisterRequest{
		Name:           req.Name,
		AccessKey:      req.AccessKey,
		ContactEmail:   req.ContactEmail,
		EmergencyEmail: req.EmergencyEmail,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(profile))
}

type loginRequest struct {
	Name      string `json:"name" binding:"required"`
	AccessKey string `json:"access_key" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	token, profile, err := h.service.Login(c.Request.Context(), req.Name, req.AccessKey)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"token":   token,
		"profile": profile,
	}))
}
