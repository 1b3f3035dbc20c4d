package handlers

import (
	"net/http"

	"missionhub_backend/internal/appErrors"
	"missionhub_backend/internal/services"
	"missionhub_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type MissionHandler struct {
	BaseHandler
	missionService services.MissionService
}

func NewMissionHandler(base BaseHandler, missionService services.MissionService) *MissionHandler {
	return &MissionHandler{BaseHandler: base, missionService: missionService}
}

// Create stores a mission. With publish=true it also claims one quota unit
// and goes live in the same transaction; drafts cost nothing.
func (h *MissionHandler) Create(c *gin.Context) {
	var req dto.CreateMissionRequest
	if !h.BindAndValidate(c, &req) {
		return
	}

	mission, err := h.missionService.Create(c.Request.Context(), h.GetDB(c), h.CurrentUserID(c), &req)
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, mission)
}

func (h *MissionHandler) Publish(c *gin.Context) {
	mission, err := h.missionService.Publish(c.Request.Context(), h.GetDB(c), h.CurrentUserID(c), c.Param("id"))
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, mission)
}

func (h *MissionHandler) Close(c *gin.Context) {
	if err := h.missionService.Close(c.Request.Context(), h.GetDB(c), h.CurrentUserID(c), c.Param("id")); err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": true})
}

func (h *MissionHandler) Cancel(c *gin.Context) {
	if err := h.missionService.Cancel(c.Request.Context(), h.GetDB(c), h.CurrentUserID(c), c.Param("id")); err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

func (h *MissionHandler) Get(c *gin.Context) {
	mission, err := h.missionService.Get(h.GetDB(c), c.Param("id"))
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, mission)
}

func (h *MissionHandler) ListMine(c *gin.Context) {
	missions, err := h.missionService.ListByOwner(h.GetDB(c), h.CurrentUserID(c))
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"missions": missions})
}
