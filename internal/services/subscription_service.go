package services

import (
	"encoding/json"
	"fmt"
	"time"

	"missionhub_backend/internal/appErrors"
	"missionhub_backend/internal/logger"
	"missionhub_backend/internal/models"
	"missionhub_backend/internal/repositories"
	"missionhub_backend/internal/services/dto"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubscriptionService manages plans, subscriptions and the two auxiliary
// monetization balances (credits, commission charges). Plan administration is
// restricted to super admins; regular admins can grant credits.
type SubscriptionService interface {
	CreatePlan(db *gorm.DB, actorRole models.UserRole, req *dto.CreatePlanRequest) (*models.SubscriptionPlan, error)
	UpdatePlan(db *gorm.DB, actorRole models.UserRole, planID string, req *dto.UpdatePlanRequest) (*models.SubscriptionPlan, error)
	DeletePlan(db *gorm.DB, actorRole models.UserRole, planID string) error
	ListPlans(db *gorm.DB, role models.UserRole) ([]models.SubscriptionPlan, error)

	Subscribe(db *gorm.DB, userID string, req *dto.SubscribeRequest) (*models.Subscription, error)
	ActiveSubscription(db *gorm.DB, userID string) (*models.Subscription, error)
	Cancel(db *gorm.DB, userID string) error
	ProcessExpired(db *gorm.DB) (int64, error)

	GrantCredits(db *gorm.DB, actorRole models.UserRole, userID string, amount int) error
	CreditBalance(db *gorm.DB, userID string) (int, error)
	PendingCharges(db *gorm.DB, actorID string) ([]models.CommissionCharge, error)
}

type subscriptionService struct {
	subscriptionRepo repositories.SubscriptionRepository
	userRepo         repositories.UserRepository
}

func NewSubscriptionService(
	subscriptionRepo repositories.SubscriptionRepository,
	userRepo repositories.UserRepository,
) SubscriptionService {
	return &subscriptionService{
		subscriptionRepo: subscriptionRepo,
		userRepo:         userRepo,
	}
}

// Plan administration

func (s *subscriptionService) CreatePlan(db *gorm.DB, actorRole models.UserRole, req *dto.CreatePlanRequest) (*models.SubscriptionPlan, error) {
	if actorRole != models.UserRoleSuperAdmin {
		return nil, appErrors.ErrForbidden
	}

	limits, err := marshalLimits(req.Limits)
	if err != nil {
		return nil, err
	}

	mode := models.MonetizationMode(req.MonetizationMode)
	if mode == "" {
		mode = models.MonetizationModeSubscription
	}

	plan := &models.SubscriptionPlan{
		Code:             req.Code,
		Name:             req.Name,
		TargetRole:       models.UserRole(req.TargetRole),
		Price:            req.Price,
		Currency:         req.Currency,
		Duration:         req.Duration,
		Limits:           limits,
		MonetizationMode: mode,
		IsActive:         req.IsActive,
	}
	if err := s.subscriptionRepo.CreatePlan(db, plan); err != nil {
		return nil, err
	}
	logger.Info("subscription plan created", "plan_id", plan.ID, "code", plan.Code)
	return plan, nil
}

func (s *subscriptionService) UpdatePlan(db *gorm.DB, actorRole models.UserRole, planID string, req *dto.UpdatePlanRequest) (*models.SubscriptionPlan, error) {
	if actorRole != models.UserRoleSuperAdmin {
		return nil, appErrors.ErrForbidden
	}

	plan, err := s.subscriptionRepo.FindPlanByID(db, planID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrSubscriptionPlanNotFound) {
			return nil, appErrors.ErrSubscriptionPlanNotFound
		}
		return nil, err
	}

	if req.Name != nil {
		plan.Name = *req.Name
	}
	if req.Price != nil {
		plan.Price = *req.Price
	}
	if req.Currency != nil {
		plan.Currency = *req.Currency
	}
	if req.Duration != nil {
		plan.Duration = *req.Duration
	}
	if req.Limits != nil {
		limits, err := marshalLimits(req.Limits)
		if err != nil {
			return nil, err
		}
		plan.Limits = limits
	}
	if req.MonetizationMode != nil {
		plan.MonetizationMode = models.MonetizationMode(*req.MonetizationMode)
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}

	if err := s.subscriptionRepo.UpdatePlan(db, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *subscriptionService) DeletePlan(db *gorm.DB, actorRole models.UserRole, planID string) error {
	if actorRole != models.UserRoleSuperAdmin {
		return appErrors.ErrForbidden
	}
	if err := s.subscriptionRepo.DeletePlan(db, planID); err != nil {
		if appErrors.Is(err, repositories.ErrSubscriptionPlanNotFound) {
			return appErrors.ErrSubscriptionPlanNotFound
		}
		return err
	}
	return nil
}

func (s *subscriptionService) ListPlans(db *gorm.DB, role models.UserRole) ([]models.SubscriptionPlan, error) {
	return s.subscriptionRepo.FindPlansByRole(db, role)
}

// Subscriptions

func (s *subscriptionService) Subscribe(db *gorm.DB, userID string, req *dto.SubscribeRequest) (*models.Subscription, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrUserNotFound) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, err
	}

	plan, err := s.subscriptionRepo.FindPlanByID(db, req.PlanID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrSubscriptionPlanNotFound) {
			return nil, appErrors.ErrSubscriptionPlanNotFound
		}
		return nil, err
	}
	if !plan.IsActive {
		return nil, appErrors.ValidationError("plan is no longer available")
	}
	if plan.TargetRole != user.Role {
		return nil, appErrors.ValidationError(fmt.Sprintf("plan %s is not available for role %s", plan.Code, user.Role))
	}

	now := time.Now()
	subscription := &models.Subscription{
		UserID:    userID,
		PlanID:    plan.ID,
		Status:    models.SubscriptionStatusActive,
		StartDate: now,
		EndDate:   calculateEndDate(now, plan.Duration),
	}

	// Replacing an existing subscription: cancel the old one and open the new
	// one in a single transaction so the actor never holds two active plans.
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := s.subscriptionRepo.CancelSubscription(tx, userID); err != nil &&
			!appErrors.Is(err, repositories.ErrSubscriptionNotFound) {
			return err
		}
		return s.subscriptionRepo.CreateSubscription(tx, subscription)
	})
	if err != nil {
		return nil, err
	}

	subscription.Plan = *plan
	logger.Info("subscription created", "user_id", userID, "plan_code", plan.Code, "end_date", subscription.EndDate)
	return subscription, nil
}

func (s *subscriptionService) ActiveSubscription(db *gorm.DB, userID string) (*models.Subscription, error) {
	subscription, err := s.subscriptionRepo.FindActiveSubscription(db, userID, time.Now())
	if err != nil {
		if appErrors.Is(err, repositories.ErrSubscriptionNotFound) {
			return nil, appErrors.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return subscription, nil
}

func (s *subscriptionService) Cancel(db *gorm.DB, userID string) error {
	if err := s.subscriptionRepo.CancelSubscription(db, userID); err != nil {
		if appErrors.Is(err, repositories.ErrSubscriptionNotFound) {
			return appErrors.ErrSubscriptionNotFound
		}
		return err
	}
	logger.Info("subscription cancelled", "user_id", userID)
	return nil
}

// ProcessExpired flips active subscriptions past their end date to EXPIRED.
// Lapsed actors fall back to the free tier on their next resolution; existing
// usage above the free limit is never clawed back.
func (s *subscriptionService) ProcessExpired(db *gorm.DB) (int64, error) {
	count, err := s.subscriptionRepo.ExpireSubscriptionsBefore(db, time.Now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		logger.Info("expired subscriptions processed", "count", count)
	}
	return count, nil
}

// Credits and commissions

func (s *subscriptionService) GrantCredits(db *gorm.DB, actorRole models.UserRole, userID string, amount int) error {
	if actorRole != models.UserRoleAdmin && actorRole != models.UserRoleSuperAdmin {
		return appErrors.ErrForbidden
	}
	if amount <= 0 {
		return appErrors.ValidationError("amount must be positive")
	}
	if _, err := s.userRepo.FindByID(db, userID); err != nil {
		if appErrors.Is(err, repositories.ErrUserNotFound) {
			return appErrors.ErrUserNotFound
		}
		return err
	}
	if err := s.subscriptionRepo.GrantCredits(db, userID, amount); err != nil {
		return err
	}
	logger.Info("credits granted", "user_id", userID, "amount", amount)
	return nil
}

func (s *subscriptionService) CreditBalance(db *gorm.DB, userID string) (int, error) {
	return s.subscriptionRepo.CreditBalance(db, userID)
}

func (s *subscriptionService) PendingCharges(db *gorm.DB, actorID string) ([]models.CommissionCharge, error) {
	return s.subscriptionRepo.FindPendingCharges(db, actorID)
}

func marshalLimits(limits map[string]any) (datatypes.JSON, error) {
	if limits == nil {
		return nil, nil
	}
	for key := range limits {
		if _, ok := models.KnownPlanLimitKeys[key]; !ok {
			return nil, appErrors.ValidationError(fmt.Sprintf("unknown limit key %q", key))
		}
	}
	raw, err := json.Marshal(limits)
	if err != nil {
		return nil, appErrors.ValidationError("limits must be JSON-serializable")
	}
	return datatypes.JSON(raw), nil
}

func calculateEndDate(start time.Time, duration string) time.Time {
	switch duration {
	case "yearly":
		return start.AddDate(1, 0, 0)
	case "weekly":
		return start.AddDate(0, 0, 7)
	default: // monthly
		return start.AddDate(0, 1, 0)
	}
}
