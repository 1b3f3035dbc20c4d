package handlers

import (
	"net/http"

	"missionhub_backend/internal/appErrors"
	"missionhub_backend/internal/services"
	"missionhub_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	BaseHandler
	userService services.UserService
}

func NewAuthHandler(base BaseHandler, userService services.UserService) *AuthHandler {
	return &AuthHandler{BaseHandler: base, userService: userService}
}

// Register creates an account with its profile and opens a verification case.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !h.BindAndValidate(c, &req) {
		return
	}

	resp, err := h.userService.Register(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindAndValidate(c, &req) {
		return
	}

	resp, err := h.userService.Login(h.GetDB(c), &req)
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.userService.Get(h.GetDB(c), h.CurrentUserID(c))
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":     user.ID,
		"email":  user.Email,
		"role":   user.Role,
		"status": user.Status,
	})
}
