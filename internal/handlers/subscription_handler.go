package handlers

import (
	"net/http"

	"missionhub_backend/internal/appErrors"
	"missionhub_backend/internal/models"
	"missionhub_backend/internal/services"
	"missionhub_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type SubscriptionHandler struct {
	BaseHandler
	subscriptionService services.SubscriptionService
}

func NewSubscriptionHandler(base BaseHandler, subscriptionService services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{BaseHandler: base, subscriptionService: subscriptionService}
}

func (h *SubscriptionHandler) currentRole(c *gin.Context) models.UserRole {
	roleVal, _ := c.Get("role")
	if role, ok := roleVal.(models.UserRole); ok {
		return role
	}
	if roleStr, ok := roleVal.(string); ok {
		return models.UserRole(roleStr)
	}
	return ""
}

// Plan administration (super admin)

func (h *SubscriptionHandler) CreatePlan(c *gin.Context) {
	var req dto.CreatePlanRequest
	if !h.BindAndValidate(c, &req) {
		return
	}

	plan, err := h.subscriptionService.CreatePlan(h.GetDB(c), h.currentRole(c), &req)
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

func (h *SubscriptionHandler) UpdatePlan(c *gin.Context) {
	var req dto.UpdatePlanRequest
	if !h.BindAndValidate(c, &req) {
		return
	}

	plan, err := h.subscriptionService.UpdatePlan(h.GetDB(c), h.currentRole(c), c.Param("id"), &req)
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

func (h *SubscriptionHandler) DeletePlan(c *gin.Context) {
	if err := h.subscriptionService.DeletePlan(h.GetDB(c), h.currentRole(c), c.Param("id")); err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	role := models.UserRole(c.DefaultQuery("role", string(h.currentRole(c))))
	plans, err := h.subscriptionService.ListPlans(h.GetDB(c), role)
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

// Subscriptions

func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	var req dto.SubscribeRequest
	if !h.BindAndValidate(c, &req) {
		return
	}

	subscription, err := h.subscriptionService.Subscribe(h.GetDB(c), h.CurrentUserID(c), &req)
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, subscription)
}

func (h *SubscriptionHandler) Current(c *gin.Context) {
	subscription, err := h.subscriptionService.ActiveSubscription(h.GetDB(c), h.CurrentUserID(c))
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, subscription)
}

func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	if err := h.subscriptionService.Cancel(h.GetDB(c), h.CurrentUserID(c)); err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

// Credits

type grantCreditsRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Amount int    `json:"amount" binding:"required"`
}

func (h *SubscriptionHandler) GrantCredits(c *gin.Context) {
	var req grantCreditsRequest
	if !h.BindAndValidate(c, &req) {
		return
	}

	if err := h.subscriptionService.GrantCredits(h.GetDB(c), h.currentRole(c), req.UserID, req.Amount); err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"granted": req.Amount})
}

func (h *SubscriptionHandler) CreditBalance(c *gin.Context) {
	balance, err := h.subscriptionService.CreditBalance(h.GetDB(c), h.CurrentUserID(c))
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credits": balance})
}

func (h *SubscriptionHandler) PendingCharges(c *gin.Context) {
	charges, err := h.subscriptionService.PendingCharges(h.GetDB(c), h.CurrentUserID(c))
	if err != nil {
		appErrors.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"charges": charges})
}
