package services_test

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"missionhub_backend/database"
	"missionhub_backend/internal/audit"
	"missionhub_backend/internal/config"
	"missionhub_backend/internal/models"
	"missionhub_backend/internal/repositories"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Shared pool for the tests that need a real database. Set DATABASE_URL to
// run them; without it they skip and only the in-memory tests execute.
var (
	poolOnce sync.Once
	pool     *gorm.DB
	poolErr  error
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set; skipping database-backed test")
	}

	poolOnce.Do(func() {
		config.LoadConfig()
		db, err := database.Connect(config.GetConfig())
		if err != nil {
			poolErr = err
			return
		}
		if err := database.Migrate(db); err != nil {
			poolErr = err
			return
		}
		pool = db
	})
	if poolErr != nil {
		t.Fatalf("failed to set up test database: %v", poolErr)
	}
	return pool
}

// createTestUser inserts a user with the given role, already validated so
// quota-gated actions are unblocked. Rows are removed when the test finishes.
func createTestUser(t *testing.T, db *gorm.DB, role models.UserRole) *models.User {
	t.Helper()

	user := &models.User{
		Email:        fmt.Sprintf("%s-%s@test.local", role, uuid.NewString()[:8]),
		PasswordHash: "x",
		Role:         role,
		Status:       models.UserStatusValidated,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	t.Cleanup(func() {
		db.Where("actor_id = ?", user.ID).Delete(&models.QuotaReservation{})
		db.Where("actor_id = ?", user.ID).Delete(&models.QuotaCounter{})
		db.Where("actor_id = ?", user.ID).Delete(&models.CommissionCharge{})
		db.Where("user_id = ?", user.ID).Delete(&models.CreditBalance{})
		db.Where("user_id = ?", user.ID).Delete(&models.Subscription{})
		db.Where("id = ?", user.ID).Delete(&models.User{})
	})
	return user
}

func createWorkerProfile(t *testing.T, db *gorm.DB, userID string, experienceYears int) *models.WorkerProfile {
	t.Helper()

	profile := &models.WorkerProfile{
		UserID:          userID,
		Name:            "Test Worker",
		City:            "Paris",
		ExperienceYears: experienceYears,
	}
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("failed to create worker profile: %v", err)
	}
	t.Cleanup(func() {
		db.Where("entity_id = ?", profile.ID).Delete(&models.VerificationRecord{})
		db.Where("profile_id = ?", profile.ID).Delete(&models.DiplomaDocument{})
		db.Where("id = ?", profile.ID).Delete(&models.WorkerProfile{})
	})
	return profile
}

// subscribeToPlan gives the user a fresh active plan with the given limits
// and mode. Each call creates its own plan so tests never share tiers.
func subscribeToPlan(t *testing.T, db *gorm.DB, userID string, role models.UserRole, limits string, mode models.MonetizationMode) {
	t.Helper()

	repo := repositories.NewSubscriptionRepository()
	plan := &models.SubscriptionPlan{
		Code:             "TEST_" + uuid.NewString()[:8],
		Name:             "Test plan",
		TargetRole:       role,
		Duration:         "monthly",
		Limits:           datatypes.JSON(limits),
		MonetizationMode: mode,
		IsActive:         true,
	}
	if err := repo.CreatePlan(db, plan); err != nil {
		t.Fatalf("failed to create test plan: %v", err)
	}
	t.Cleanup(func() {
		db.Where("id = ?", plan.ID).Delete(&models.SubscriptionPlan{})
	})

	// Replace any previous test subscription.
	db.Where("user_id = ?", userID).Delete(&models.Subscription{})

	sub := &models.Subscription{
		UserID:    userID,
		PlanID:    plan.ID,
		Status:    models.SubscriptionStatusActive,
		StartDate: time.Now(),
		EndDate:   time.Now().Add(24 * time.Hour),
	}
	if err := repo.CreateSubscription(db, sub); err != nil {
		t.Fatalf("failed to create test subscription: %v", err)
	}
}

func nopSink() audit.Sink {
	return &captureSink{}
}
