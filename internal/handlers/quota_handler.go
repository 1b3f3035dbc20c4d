package handlers

import (
	"net/http"

	"missionhub_backend/internal/appErrors"
	"missionhub_backend/internal/models"
	"missionhub_backend/internal/services"
	"missionhub_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

// QuotaHandler exposes the ledger directly: reserve, release and status.
// The mission and application flows call the same service internally; these
// endpoints serve tooling and other backend components.
type QuotaHandler struct {
	BaseHandler
	quotaService services.QuotaService
}

func NewQuotaHandler(base BaseHandler, quotaService services.QuotaService) *QuotaHandler {
	return &QuotaHandler{BaseHandler: base, quotaService: quotaService}
}

// Reserve attempts one atomic check-and-reserve for the caller. A full quota
// is a 200 with ok=false, not an error.
func (h *QuotaHandler) Reserve(c *gin.Context) {
	var req dto.ReserveRequest
	if !h.BindAndValidate(c, &req) {
		return
	}

	result, err := h.quotaService.TryReserve(
		c.Request.Context(),
		h.GetDB(c),
		h.CurrentUserID(c),
		models.ResourceKind(req.ResourceKind),
	)
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Release frees the claim on one resource instance. Idempotent.
func (h *QuotaHandler) Release(c *gin.Context) {
	var req dto.ReleaseRequest
	if !h.BindAndValidate(c, &req) {
		return
	}

	err := h.quotaService.Release(
		c.Request.Context(),
		h.GetDB(c),
		h.CurrentUserID(c),
		models.ResourceKind(req.ResourceKind),
		req.ResourceID,
	)
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"released": true})
}

// Status reports the caller's limit, usage and remaining headroom.
func (h *QuotaHandler) Status(c *gin.Context) {
	kind := models.ResourceKind(c.Query("resource_kind"))
	if kind != models.ResourceKindApplication && kind != models.ResourceKindMission {
		appErrors.HandleError(c, appErrors.ValidationError("resource_kind must be application or mission"))
		return
	}

	status, err := h.quotaService.Status(h.GetDB(c), h.CurrentUserID(c), kind)
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
