package handlers

import (
	"net/http"
	"strconv"
	"time"

	"missionhub_backend/internal/appErrors"
	"missionhub_backend/internal/models"
	"missionhub_backend/internal/services"
	"missionhub_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

// VerificationHandler exposes the review workflow to the back office.
type VerificationHandler struct {
	BaseHandler
	verificationService services.VerificationService
}

func NewVerificationHandler(base BaseHandler, verificationService services.VerificationService) *VerificationHandler {
	return &VerificationHandler{BaseHandler: base, verificationService: verificationService}
}

// Transition applies one reviewer action under compare-and-swap. A stale
// expected_version comes back as a 409; the client refetches and retries.
func (h *VerificationHandler) Transition(c *gin.Context) {
	var req dto.TransitionRequest
	if !h.BindAndValidate(c, &req) {
		return
	}

	result, err := h.verificationService.Transition(
		c.Request.Context(),
		h.GetDB(c),
		h.CurrentUserID(c),
		&req,
	)
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *VerificationHandler) Get(c *gin.Context) {
	record, err := h.verificationService.Get(h.GetDB(c), c.Param("id"))
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toVerificationResponse(record))
}

// Queue lists open review cases in a status, oldest first.
func (h *VerificationHandler) Queue(c *gin.Context) {
	status := models.VerificationStatus(c.DefaultQuery("status", string(models.VerificationStatusPending)))
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	records, err := h.verificationService.Queue(h.GetDB(c), status, limit)
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}

	resp := make([]dto.VerificationRecordResponse, 0, len(records))
	for i := range records {
		resp = append(resp, toVerificationResponse(&records[i]))
	}
	c.JSON(http.StatusOK, gin.H{"records": resp})
}

func toVerificationResponse(r *models.VerificationRecord) dto.VerificationRecordResponse {
	return dto.VerificationRecordResponse{
		ID:           r.ID,
		EntityType:   string(r.EntityType),
		EntityID:     r.EntityID,
		Status:       string(r.Status),
		Version:      r.Version,
		ReviewerID:   r.ReviewerID,
		Notes:        r.Notes,
		RejectReason: r.RejectReason,
		CreatedAt:    r.CreatedAt.Format(time.RFC3339),
	}
}
