package routes

import (
	"net/http"

	"missionhub_backend/internal/handlers"
	"missionhub_backend/internal/middleware"
	"missionhub_backend/internal/models"

	"github.com/gin-gonic/gin"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Privilege    *handlers.PrivilegeHandler
	Quota        *handlers.QuotaHandler
	Verification *handlers.VerificationHandler
	Subscription *handlers.SubscriptionHandler
	Mission      *handlers.MissionHandler
	Application  *handlers.ApplicationHandler
}

func Setup(r *gin.Engine, h *Handlers) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")

	// Public
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.GET("/missions/:id", h.Mission.Get)
	api.GET("/plans", h.Subscription.ListPlans)

	// Authenticated
	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware())
	{
		authed.GET("/auth/me", h.Auth.Me)

		// Quota ledger
		authed.POST("/quota/reserve", h.Quota.Reserve)
		authed.POST("/quota/release", h.Quota.Release)
		authed.GET("/quota/status", h.Quota.Status)

		// Privilege resolution (read side is open to any actor)
		authed.GET("/privileges/resolve", h.Privilege.Resolve)

		// Subscriptions and credits
		authed.POST("/subscriptions", h.Subscription.Subscribe)
		authed.GET("/subscriptions/current", h.Subscription.Current)
		authed.DELETE("/subscriptions/current", h.Subscription.Cancel)
		authed.GET("/credits/balance", h.Subscription.CreditBalance)
		authed.GET("/commissions/pending", h.Subscription.PendingCharges)

		// Missions (establishments)
		establishment := authed.Group("")
		establishment.Use(middleware.RequireRoles(models.UserRoleEstablishment))
		{
			establishment.POST("/missions", h.Mission.Create)
			establishment.POST("/missions/:id/publish", h.Mission.Publish)
			establishment.POST("/missions/:id/close", h.Mission.Close)
			establishment.POST("/missions/:id/cancel", h.Mission.Cancel)
			establishment.GET("/missions", h.Mission.ListMine)
			establishment.GET("/missions/:id/applications", h.Application.ListForMission)
			establishment.POST("/applications/:id/accept", h.Application.Accept)
			establishment.POST("/applications/:id/reject", h.Application.Reject)
		}

		// Applications (workers)
		worker := authed.Group("")
		worker.Use(middleware.RequireRoles(models.UserRoleWorker))
		{
			worker.POST("/applications", h.Application.Apply)
			worker.POST("/applications/:id/withdraw", h.Application.Withdraw)
			worker.GET("/applications", h.Application.ListMine)
		}

		// Back office
		admin := authed.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.POST("/privileges/overrides", h.Privilege.SetOverride)
			admin.GET("/privileges/overrides", h.Privilege.ListOverrides)

			admin.GET("/verifications", h.Verification.Queue)
			admin.GET("/verifications/:id", h.Verification.Get)
			admin.POST("/verifications/transition", h.Verification.Transition)

			admin.POST("/credits/grant", h.Subscription.GrantCredits)

			admin.POST("/plans", h.Subscription.CreatePlan)
			admin.PUT("/plans/:id", h.Subscription.UpdatePlan)
			admin.DELETE("/plans/:id", h.Subscription.DeletePlan)
		}
	}
}
