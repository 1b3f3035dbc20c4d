package app

import (
	"fmt"

	"missionhub_backend/database"
	"missionhub_backend/internal/audit"
	"missionhub_backend/internal/auth"
	"missionhub_backend/internal/config"
	"missionhub_backend/internal/email"
	"missionhub_backend/internal/handlers"
	"missionhub_backend/internal/logger"
	"missionhub_backend/internal/middleware"
	"missionhub_backend/internal/models"
	"missionhub_backend/internal/repositories"
	"missionhub_backend/internal/routes"
	"missionhub_backend/internal/services"
	"missionhub_backend/internal/validator"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Run wires everything together and starts the HTTP server.
func Run() error {
	config.LoadConfig()
	cfg := config.GetConfig()

	logger.Init(cfg.Server.Env)

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	if err := seed(db, cfg); err != nil {
		return err
	}

	router := SetupRouter(db, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("server starting", "addr", addr, "env", cfg.Server.Env)
	return router.Run(addr)
}

// SetupRouter builds the full engine. Tests call it directly with their own
// pool.
func SetupRouter(db *gorm.DB, cfg *config.Config) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	services.SetPool(db)

	// Repositories
	userRepo := repositories.NewUserRepository()
	profileRepo := repositories.NewProfileRepository()
	privilegeRepo := repositories.NewPrivilegeRepository()
	quotaRepo := repositories.NewQuotaRepository()
	subscriptionRepo := repositories.NewSubscriptionRepository()
	verificationRepo := repositories.NewVerificationRepository()
	missionRepo := repositories.NewMissionRepository()
	applicationRepo := repositories.NewApplicationRepository()
	notificationRepo := repositories.NewNotificationRepository()

	// Audit sink: structured log plus the audit_logs table.
	sink := audit.NewMultiSink(audit.NewLogSink(), audit.NewDBSink(db))

	var mailer email.Sender
	if cfg.Email.Enabled {
		mailer = email.NewSMTPSender(cfg)
	} else {
		mailer = email.NewNoopSender()
	}

	// Services
	privilegeService := services.NewPrivilegeService(privilegeRepo, subscriptionRepo, sink, cfg.CacheTTL())
	quotaService := services.NewQuotaService(quotaRepo, subscriptionRepo, userRepo, privilegeService, sink)
	verificationService := services.NewVerificationService(verificationRepo, profileRepo, userRepo, notificationRepo, privilegeService, sink, mailer)
	subscriptionService := services.NewSubscriptionService(subscriptionRepo, userRepo)
	missionService := services.NewMissionService(missionRepo, profileRepo, userRepo, quotaService)
	applicationService := services.NewApplicationService(applicationRepo, missionRepo, profileRepo, userRepo, quotaService)
	userService := services.NewUserService(userRepo, profileRepo, verificationService)

	// Handlers
	base := handlers.NewBaseHandler(validator.New())
	h := &routes.Handlers{
		Auth:         handlers.NewAuthHandler(base, userService),
		Privilege:    handlers.NewPrivilegeHandler(base, privilegeService),
		Quota:        handlers.NewQuotaHandler(base, quotaService),
		Verification: handlers.NewVerificationHandler(base, verificationService),
		Subscription: handlers.NewSubscriptionHandler(base, subscriptionService),
		Mission:      handlers.NewMissionHandler(base, missionService),
		Application:  handlers.NewApplicationHandler(base, applicationService),
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.DBMiddleware(db))

	routes.Setup(r, h)
	return r
}

// seed ensures the free plan and the first super admin exist.
func seed(db *gorm.DB, cfg *config.Config) error {
	if err := seedFreePlans(db); err != nil {
		return err
	}
	return seedFirstAdmin(db, cfg)
}

// seedFreePlans creates the BASIC plan per role. Actors without an active
// subscription resolve against it.
func seedFreePlans(db *gorm.DB) error {
	repo := repositories.NewSubscriptionRepository()

	for _, p := range []struct {
		role   models.UserRole
		limits string
	}{
		{models.UserRoleWorker, `{"max_active_applications": 3, "max_active_missions": 1}`},
		{models.UserRoleEstablishment, `{"max_active_missions": 5}`},
	} {
		code := fmt.Sprintf("%s_%s", repositories.FreePlanCode, p.role)
		if _, err := repo.FindPlanByCode(db, code); err == nil {
			continue
		}
		plan := &models.SubscriptionPlan{
			Code:             code,
			Name:             "Free tier",
			TargetRole:       p.role,
			Price:            0,
			Duration:         "monthly",
			Limits:           datatypes.JSON(p.limits),
			MonetizationMode: models.MonetizationModeSubscription,
			IsActive:         true,
		}
		if err := repo.CreatePlan(db, plan); err != nil {
			return err
		}
		logger.Info("free plan seeded", "code", code)
	}
	return nil
}

func seedFirstAdmin(db *gorm.DB, cfg *config.Config) error {
	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		return nil
	}

	repo := repositories.NewUserRepository()
	if _, err := repo.FindByEmail(db, cfg.Admin.Email); err == nil {
		return nil
	}

	hash, err := auth.HashPassword(cfg.Admin.Password)
	if err != nil {
		return err
	}

	admin := &models.User{
		Email:        cfg.Admin.Email,
		PasswordHash: hash,
		Role:         models.UserRoleSuperAdmin,
		Status:       models.UserStatusValidated,
	}
	if err := repo.Create(db, admin); err != nil {
		return err
	}
	logger.Info("first super admin seeded", "email", cfg.Admin.Email)
	return nil
}
