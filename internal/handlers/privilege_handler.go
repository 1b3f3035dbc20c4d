package handlers

import (
	"net/http"
	"time"

	"missionhub_backend/internal/appErrors"
	"missionhub_backend/internal/models"
	"missionhub_backend/internal/services"
	"missionhub_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

// PrivilegeHandler exposes the configuration resolver and the admin override
// endpoints.
type PrivilegeHandler struct {
	BaseHandler
	privilegeService services.PrivilegeService
}

func NewPrivilegeHandler(base BaseHandler, privilegeService services.PrivilegeService) *PrivilegeHandler {
	return &PrivilegeHandler{BaseHandler: base, privilegeService: privilegeService}
}

// Resolve answers one privilege lookup: override, then plan, then default.
func (h *PrivilegeHandler) Resolve(c *gin.Context) {
	category := models.PrivilegeCategory(c.Query("category"))
	key := c.Query("key")
	actorID := c.Query("actor_id")
	if category == "" || key == "" {
		appErrors.HandleError(c, appErrors.ValidationError("category and key query parameters are required"))
		return
	}
	if actorID == "" {
		actorID = h.CurrentUserID(c)
	}

	resolved, err := h.privilegeService.Resolve(h.GetDB(c), category, key, actorID)
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ResolveResponse{
		Category: string(category),
		Key:      key,
		Kind:     string(resolved.Value.Kind),
		Value:    resolved.Value.String(),
		Source:   resolved.Source,
	})
}

// SetOverride writes a category-wide override. Admin only.
func (h *PrivilegeHandler) SetOverride(c *gin.Context) {
	var req dto.SetOverrideRequest
	if !h.BindAndValidate(c, &req) {
		return
	}

	override, err := h.privilegeService.SetOverride(
		c.Request.Context(),
		h.GetDB(c),
		h.CurrentUserID(c),
		models.PrivilegeCategory(req.Category),
		req.Key,
		req.Value,
	)
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, toOverrideResponse(override))
}

// ListOverrides returns every override in a category.
func (h *PrivilegeHandler) ListOverrides(c *gin.Context) {
	category := models.PrivilegeCategory(c.Query("category"))
	if category == "" {
		appErrors.HandleError(c, appErrors.ValidationError("category query parameter is required"))
		return
	}

	overrides, err := h.privilegeService.Overrides(h.GetDB(c), category)
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}

	resp := make([]dto.OverrideResponse, 0, len(overrides))
	for i := range overrides {
		resp = append(resp, toOverrideResponse(&overrides[i]))
	}
	c.JSON(http.StatusOK, gin.H{"overrides": resp})
}

func toOverrideResponse(o *models.PrivilegeOverride) dto.OverrideResponse {
	return dto.OverrideResponse{
		Category:  string(o.Category),
		Key:       o.Key,
		Value:     o.Value,
		UpdatedBy: o.UpdatedBy,
		UpdatedAt: o.UpdatedAt.Format(time.RFC3339),
	}
}
