package handlers

import (
	"net/http"

	"missionhub_backend/internal/appErrors"
	"missionhub_backend/internal/services"
	"missionhub_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type ApplicationHandler struct {
	BaseHandler
	applicationService services.ApplicationService
}

func NewApplicationHandler(base BaseHandler, applicationService services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{BaseHandler: base, applicationService: applicationService}
}

// Apply creates an application; the row and its quota claim commit together.
func (h *ApplicationHandler) Apply(c *gin.Context) {
	var req dto.CreateApplicationRequest
	if !h.BindAndValidate(c, &req) {
		return
	}

	application, err := h.applicationService.Apply(c.Request.Context(), h.GetDB(c), h.CurrentUserID(c), &req)
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, application)
}

func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	if err := h.applicationService.Withdraw(c.Request.Context(), h.GetDB(c), h.CurrentUserID(c), c.Param("id")); err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawn": true})
}

func (h *ApplicationHandler) Accept(c *gin.Context) {
	if err := h.applicationService.Accept(c.Request.Context(), h.GetDB(c), h.CurrentUserID(c), c.Param("id")); err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": true})
}

func (h *ApplicationHandler) Reject(c *gin.Context) {
	if err := h.applicationService.Reject(c.Request.Context(), h.GetDB(c), h.CurrentUserID(c), c.Param("id")); err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rejected": true})
}

func (h *ApplicationHandler) ListMine(c *gin.Context) {
	applications, err := h.applicationService.ListByWorker(h.GetDB(c), h.CurrentUserID(c))
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": applications})
}

func (h *ApplicationHandler) ListForMission(c *gin.Context) {
	applications, err := h.applicationService.ListByMission(h.GetDB(c), h.CurrentUserID(c), c.Param("id"))
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": applications})
}
