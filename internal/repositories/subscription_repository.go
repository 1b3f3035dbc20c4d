package repositories

import (
	"errors"
	"time"

	"missionhub_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrSubscriptionNotFound     = errors.New("subscription not found")
	ErrSubscriptionPlanNotFound = errors.New("subscription plan not found")
	ErrInsufficientCredits      = errors.New("insufficient credits")
)

// FreePlanCode is the code prefix of the seeded free plans ("BASIC_worker",
// "BASIC_establishment"). Actors without an active subscription resolve
// against the free plan of their role.
const FreePlanCode = "BASIC"

type SubscriptionRepository interface {
	// SubscriptionPlan operations
	CreatePlan(db *gorm.DB, plan *models.SubscriptionPlan) error
	FindPlanByID(db *gorm.DB, id string) (*models.SubscriptionPlan, error)
	FindPlanByCode(db *gorm.DB, code string) (*models.SubscriptionPlan, error)
	FindPlansByRole(db *gorm.DB, role models.UserRole) ([]models.SubscriptionPlan, error)
	UpdatePlan(db *gorm.DB, plan *models.SubscriptionPlan) error
	DeletePlan(db *gorm.DB, id string) error

	// Subscription operations
	CreateSubscription(db *gorm.DB, subscription *models.Subscription) error
	FindActiveSubscription(db *gorm.DB, userID string, now time.Time) (*models.Subscription, error)
	CancelSubscription(db *gorm.DB, userID string) error
	ExpireSubscriptionsBefore(db *gorm.DB, cutoff time.Time) (int64, error)

	// Credit operations (CREDITS monetization mode)
	CreditBalance(db *gorm.DB, userID string) (int, error)
	GrantCredits(db *gorm.DB, userID string, amount int) error
	DebitCredit(tx *gorm.DB, userID string) error

	// Commission operations (COMMISSION monetization mode)
	CreateCommissionCharge(db *gorm.DB, charge *models.CommissionCharge) error
	FindPendingCharges(db *gorm.DB, actorID string) ([]models.CommissionCharge, error)
}

type SubscriptionRepositoryImpl struct{}

func NewSubscriptionRepository() SubscriptionRepository {
	return &SubscriptionRepositoryImpl{}
}

// SubscriptionPlan operations

func (r *SubscriptionRepositoryImpl) CreatePlan(db *gorm.DB, plan *models.SubscriptionPlan) error {
	return db.Create(plan).Error
}

func (r *SubscriptionRepositoryImpl) FindPlanByID(db *gorm.DB, id string) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	err := db.First(&plan, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *SubscriptionRepositoryImpl) FindPlanByCode(db *gorm.DB, code string) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	err := db.Where("code = ?", code).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *SubscriptionRepositoryImpl) FindPlansByRole(db *gorm.DB, role models.UserRole) ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	err := db.Where("is_active = ? AND target_role = ?", true, role).
		Order("price ASC").Find(&plans).Error
	return plans, err
}

func (r *SubscriptionRepositoryImpl) UpdatePlan(db *gorm.DB, plan *models.SubscriptionPlan) error {
	result := db.Model(plan).Updates(map[string]interface{}{
		"name":              plan.Name,
		"price":             plan.Price,
		"currency":          plan.Currency,
		"duration":          plan.Duration,
		"limits":            plan.Limits,
		"monetization_mode": plan.MonetizationMode,
		"is_active":         plan.IsActive,
		"updated_at":        time.Now(),
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubscriptionPlanNotFound
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) DeletePlan(db *gorm.DB, id string) error {
	result := db.Where("id = ?", id).Delete(&models.SubscriptionPlan{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubscriptionPlanNotFound
	}
	return nil
}

// Subscription operations

func (r *SubscriptionRepositoryImpl) CreateSubscription(db *gorm.DB, subscription *models.Subscription) error {
	return db.Create(subscription).Error
}

// FindActiveSubscription returns the newest ACTIVE subscription whose end
// date is still in the future; absence means free tier.
func (r *SubscriptionRepositoryImpl) FindActiveSubscription(db *gorm.DB, userID string, now time.Time) (*models.Subscription, error) {
	var subscription models.Subscription
	err := db.Preload("Plan").
		Where("user_id = ? AND status = ? AND end_date > ?", userID, models.SubscriptionStatusActive, now).
		Order("start_date DESC").
		First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *SubscriptionRepositoryImpl) CancelSubscription(db *gorm.DB, userID string) error {
	now := time.Now()
	result := db.Model(&models.Subscription{}).
		Where("user_id = ? AND status = ?", userID, models.SubscriptionStatusActive).
		Updates(map[string]interface{}{
			"status":       models.SubscriptionStatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) ExpireSubscriptionsBefore(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Model(&models.Subscription{}).
		Where("status = ? AND end_date <= ?", models.SubscriptionStatusActive, cutoff).
		Updates(map[string]interface{}{
			"status":     models.SubscriptionStatusExpired,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// Credit operations

func (r *SubscriptionRepositoryImpl) CreditBalance(db *gorm.DB, userID string) (int, error) {
	var balance models.CreditBalance
	err := db.Where("user_id = ?", userID).First(&balance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return balance.Credits, nil
}

func (r *SubscriptionRepositoryImpl) GrantCredits(db *gorm.DB, userID string, amount int) error {
	balance := models.CreditBalance{UserID: userID, Credits: amount}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"credits": gorm.Expr("credit_balances.credits + ?", amount), "updated_at": time.Now()}),
	}).Create(&balance).Error
}

// DebitCredit takes one credit. The balance guard sits in the WHERE clause,
// so the debit and the check are a single statement; zero rows affected means
// the balance was already empty and nothing changed.
func (r *SubscriptionRepositoryImpl) DebitCredit(tx *gorm.DB, userID string) error {
	result := tx.Model(&models.CreditBalance{}).
		Where("user_id = ? AND credits > 0", userID).
		UpdateColumn("credits", gorm.Expr("credits - 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientCredits
	}
	return nil
}

// Commission operations

func (r *SubscriptionRepositoryImpl) CreateCommissionCharge(db *gorm.DB, charge *models.CommissionCharge) error {
	// One charge per resource; replays of the acceptance event are no-ops.
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "resource_id"}},
		DoNothing: true,
	}).Create(charge).Error
}

func (r *SubscriptionRepositoryImpl) FindPendingCharges(db *gorm.DB, actorID string) ([]models.CommissionCharge, error) {
	var charges []models.CommissionCharge
	err := db.Where("actor_id = ? AND status = ?", actorID, "pending").
		Order("created_at ASC").Find(&charges).Error
	return charges, err
}
