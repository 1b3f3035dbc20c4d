package handlers

import (
	"missionhub_backend/internal/appErrors"
	"missionhub_backend/internal/validator"
	"missionhub_backend/pkg/contextkeys"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// BaseHandler carries the pieces every handler needs: the per-request DB
// accessor and the struct validator.
type BaseHandler struct {
	validate *validator.Validator
}

func NewBaseHandler(v *validator.Validator) BaseHandler {
	return BaseHandler{validate: v}
}

// GetDB returns the *gorm.DB the middleware attached to this request: the
// pool in production, an outer transaction under tests.
func (h *BaseHandler) GetDB(c *gin.Context) *gorm.DB {
	db, _ := c.MustGet(string(contextkeys.DBContextKey)).(*gorm.DB)
	return db
}

// CurrentUserID returns the authenticated actor's ID from the context.
func (h *BaseHandler) CurrentUserID(c *gin.Context) string {
	return c.GetString("userID")
}

// BindAndValidate binds the JSON body and runs the domain validation rules.
func (h *BaseHandler) BindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		appErrors.HandleValidationError(c, err)
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		appErrors.HandleValidationError(c, err)
		return false
	}
	return true
}
