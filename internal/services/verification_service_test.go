package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"missionhub_backend/internal/appErrors"
	"missionhub_backend/internal/email"
	"missionhub_backend/internal/models"
	"missionhub_backend/internal/repositories"
	"missionhub_backend/internal/services"
	"missionhub_backend/internal/services/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newVerificationService() services.VerificationService {
	privileges := services.NewPrivilegeService(
		repositories.NewPrivilegeRepository(),
		repositories.NewSubscriptionRepository(),
		nopSink(), time.Minute)
	return services.NewVerificationService(
		repositories.NewVerificationRepository(),
		repositories.NewProfileRepository(),
		repositories.NewUserRepository(),
		repositories.NewNotificationRepository(),
		privileges,
		nopSink(),
		email.NewNoopSender(),
	)
}

func submitCase(t *testing.T, db *gorm.DB, svc services.VerificationService, profileID string) *models.VerificationRecord {
	t.Helper()
	record, err := svc.Submit(context.Background(), db, models.VerificationEntityWorkerProfile, profileID)
	require.NoError(t, err)
	require.Equal(t, models.VerificationStatusPending, record.Status)
	require.Equal(t, 1, record.Version)
	return record
}

func TestVerification_TakeChargeAdvancesVersion(t *testing.T) {
	db := testDB(t)
	svc := newVerificationService()

	worker := createTestUser(t, db, models.UserRoleWorker)
	profile := createWorkerProfile(t, db, worker.ID, 5)
	admin := createTestUser(t, db, models.UserRoleAdmin)

	submitCase(t, db, svc, profile.ID)

	result, err := svc.Transition(context.Background(), db, admin.ID, &dto.TransitionRequest{
		EntityType:      string(models.VerificationEntityWorkerProfile),
		EntityID:        profile.ID,
		ExpectedVersion: 1,
		Action:          dto.ActionTakeCharge,
	})
	require.NoError(t, err)
	assert.Equal(t, string(models.VerificationStatusInReview), result.Status)
	assert.Equal(t, 2, result.Version)

	record, err := svc.Get(db, result.RecordID)
	require.NoError(t, err)
	require.NotNil(t, record.ReviewerID)
	assert.Equal(t, admin.ID, *record.ReviewerID)
}

// Two reviewers race on the same case with the same expected version: the
// compare-and-swap admits exactly one.
func TestVerification_ConcurrentTakeChargeHasOneWinner(t *testing.T) {
	db := testDB(t)
	svc := newVerificationService()

	worker := createTestUser(t, db, models.UserRoleWorker)
	profile := createWorkerProfile(t, db, worker.ID, 5)
	adminA := createTestUser(t, db, models.UserRoleAdmin)
	adminB := createTestUser(t, db, models.UserRoleAdmin)

	submitCase(t, db, svc, profile.ID)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, reviewer := range []string{adminA.ID, adminB.ID} {
		wg.Add(1)
		go func(i int, reviewerID string) {
			defer wg.Done()
			_, errs[i] = svc.Transition(context.Background(), db, reviewerID, &dto.TransitionRequest{
				EntityType:      string(models.VerificationEntityWorkerProfile),
				EntityID:        profile.ID,
				ExpectedVersion: 1,
				Action:          dto.ActionTakeCharge,
			})
		}(i, reviewer)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, appErrors.Is(err, appErrors.ErrStateConflict), "loser must get a state conflict, got: %v", err)
		}
	}
	assert.Equal(t, 1, winners)
}

func TestVerification_StaleVersionIsConflict(t *testing.T) {
	db := testDB(t)
	svc := newVerificationService()

	worker := createTestUser(t, db, models.UserRoleWorker)
	profile := createWorkerProfile(t, db, worker.ID, 5)
	admin := createTestUser(t, db, models.UserRoleAdmin)

	submitCase(t, db, svc, profile.ID)

	_, err := svc.Transition(context.Background(), db, admin.ID, &dto.TransitionRequest{
		EntityType:      string(models.VerificationEntityWorkerProfile),
		EntityID:        profile.ID,
		ExpectedVersion: 7,
		Action:          dto.ActionTakeCharge,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrStateConflict))
}

func TestVerification_ValidateWithoutDiplomaPreconditions(t *testing.T) {
	db := testDB(t)
	svc := newVerificationService()
	ctx := context.Background()
	withDiploma := false

	admin := createTestUser(t, db, models.UserRoleAdmin)

	// Not enough experience.
	junior := createTestUser(t, db, models.UserRoleWorker)
	juniorProfile := createWorkerProfile(t, db, junior.ID, 1)
	submitCase(t, db, svc, juniorProfile.ID)
	_, err := svc.Transition(ctx, db, admin.ID, &dto.TransitionRequest{
		EntityType:      string(models.VerificationEntityWorkerProfile),
		EntityID:        juniorProfile.ID,
		ExpectedVersion: 1,
		Action:          dto.ActionTakeCharge,
	})
	require.NoError(t, err)
	_, err = svc.Transition(ctx, db, admin.ID, &dto.TransitionRequest{
		EntityType:      string(models.VerificationEntityWorkerProfile),
		EntityID:        juniorProfile.ID,
		ExpectedVersion: 2,
		Action:          dto.ActionValidate,
		WithDiploma:     &withDiploma,
	})
	require.Error(t, err, "one year of experience cannot validate without a diploma")

	// Enough experience but a diploma still pending review.
	senior := createTestUser(t, db, models.UserRoleWorker)
	seniorProfile := createWorkerProfile(t, db, senior.ID, 5)
	require.NoError(t, repositories.NewProfileRepository().AddDiploma(db, &models.DiplomaDocument{
		ProfileID: seniorProfile.ID,
		Title:     "Culinary school",
		Status:    models.DiplomaStatusPending,
	}))
	submitCase(t, db, svc, seniorProfile.ID)
	_, err = svc.Transition(ctx, db, admin.ID, &dto.TransitionRequest{
		EntityType:      string(models.VerificationEntityWorkerProfile),
		EntityID:        seniorProfile.ID,
		ExpectedVersion: 1,
		Action:          dto.ActionTakeCharge,
	})
	require.NoError(t, err)
	_, err = svc.Transition(ctx, db, admin.ID, &dto.TransitionRequest{
		EntityType:      string(models.VerificationEntityWorkerProfile),
		EntityID:        seniorProfile.ID,
		ExpectedVersion: 2,
		Action:          dto.ActionValidate,
		WithDiploma:     &withDiploma,
	})
	require.Error(t, err, "a pending diploma blocks validation without diploma")

	// Diploma reviewed: validation goes through and the account unblocks.
	require.NoError(t, db.Model(&models.DiplomaDocument{}).
		Where("profile_id = ?", seniorProfile.ID).
		Update("status", models.DiplomaStatusReviewed).Error)

	result, err := svc.Transition(ctx, db, admin.ID, &dto.TransitionRequest{
		EntityType:      string(models.VerificationEntityWorkerProfile),
		EntityID:        seniorProfile.ID,
		ExpectedVersion: 2,
		Action:          dto.ActionValidate,
		WithDiploma:     &withDiploma,
	})
	require.NoError(t, err)
	assert.Equal(t, string(models.VerificationStatusValidated), result.Status)

	var refreshed models.User
	require.NoError(t, db.First(&refreshed, "id = ?", senior.ID).Error)
	assert.Equal(t, models.UserStatusValidated, refreshed.Status)
}

func TestVerification_RejectRequiresReasonAndIsTerminal(t *testing.T) {
	db := testDB(t)
	svc := newVerificationService()
	ctx := context.Background()

	worker := createTestUser(t, db, models.UserRoleWorker)
	profile := createWorkerProfile(t, db, worker.ID, 5)
	admin := createTestUser(t, db, models.UserRoleAdmin)

	submitCase(t, db, svc, profile.ID)
	_, err := svc.Transition(ctx, db, admin.ID, &dto.TransitionRequest{
		EntityType:      string(models.VerificationEntityWorkerProfile),
		EntityID:        profile.ID,
		ExpectedVersion: 1,
		Action:          dto.ActionTakeCharge,
	})
	require.NoError(t, err)

	// Whitespace is not a reason.
	_, err = svc.Transition(ctx, db, admin.ID, &dto.TransitionRequest{
		EntityType:      string(models.VerificationEntityWorkerProfile),
		EntityID:        profile.ID,
		ExpectedVersion: 2,
		Action:          dto.ActionReject,
		RejectReason:    "   ",
	})
	require.Error(t, err)

	result, err := svc.Transition(ctx, db, admin.ID, &dto.TransitionRequest{
		EntityType:      string(models.VerificationEntityWorkerProfile),
		EntityID:        profile.ID,
		ExpectedVersion: 2,
		Action:          dto.ActionReject,
		RejectReason:    "documents unreadable",
	})
	require.NoError(t, err)
	assert.Equal(t, string(models.VerificationStatusRejected), result.Status)

	// Terminal records never transition again.
	_, err = svc.Transition(ctx, db, admin.ID, &dto.TransitionRequest{
		EntityType:      string(models.VerificationEntityWorkerProfile),
		EntityID:        profile.ID,
		ExpectedVersion: 3,
		Action:          dto.ActionTakeCharge,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrStateConflict))
}

func TestVerification_SubmitIsIdempotentWhileOpen(t *testing.T) {
	db := testDB(t)
	svc := newVerificationService()
	ctx := context.Background()

	worker := createTestUser(t, db, models.UserRoleWorker)
	profile := createWorkerProfile(t, db, worker.ID, 5)

	first := submitCase(t, db, svc, profile.ID)
	second, err := svc.Submit(ctx, db, models.VerificationEntityWorkerProfile, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "an open case is reused, not duplicated")
}

func TestVerification_DailyValidationLimitIsEnforced(t *testing.T) {
	db := testDB(t)
	svc := newVerificationService()
	ctx := context.Background()

	admin := createTestUser(t, db, models.UserRoleAdmin)

	privileges := services.NewPrivilegeService(
		repositories.NewPrivilegeRepository(),
		repositories.NewSubscriptionRepository(),
		nopSink(), time.Minute)
	_, err := privileges.SetOverride(ctx, db, admin.ID,
		models.PrivilegeCategoryAdmin, models.KeyAdminDailyValidationsLimit, "1")
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Where("category = ? AND key = ?",
			models.PrivilegeCategoryAdmin, models.KeyAdminDailyValidationsLimit).
			Delete(&models.PrivilegeOverride{})
	})

	validate := func(profileID string) error {
		submitCase(t, db, svc, profileID)
		_, err := svc.Transition(ctx, db, admin.ID, &dto.TransitionRequest{
			EntityType:      string(models.VerificationEntityWorkerProfile),
			EntityID:        profileID,
			ExpectedVersion: 1,
			Action:          dto.ActionTakeCharge,
		})
		require.NoError(t, err)
		_, err = svc.Transition(ctx, db, admin.ID, &dto.TransitionRequest{
			EntityType:      string(models.VerificationEntityWorkerProfile),
			EntityID:        profileID,
			ExpectedVersion: 2,
			Action:          dto.ActionValidate,
		})
		return err
	}

	first := createTestUser(t, db, models.UserRoleWorker)
	firstProfile := createWorkerProfile(t, db, first.ID, 5)
	require.NoError(t, validate(firstProfile.ID))

	// The reviewer's daily allowance is spent; the next validation is refused.
	second := createTestUser(t, db, models.UserRoleWorker)
	secondProfile := createWorkerProfile(t, db, second.ID, 5)
	err = validate(secondProfile.ID)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrQuotaExceeded))

	// The refused validation leaves the case where it was.
	record, err := svc.Get(db, findLatestRecordID(t, db, secondProfile.ID))
	require.NoError(t, err)
	assert.Equal(t, models.VerificationStatusInReview, record.Status)
}

func findLatestRecordID(t *testing.T, db *gorm.DB, profileID string) string {
	t.Helper()
	var record models.VerificationRecord
	require.NoError(t, db.Where("entity_type = ? AND entity_id = ?",
		models.VerificationEntityWorkerProfile, profileID).
		Order("created_at DESC").First(&record).Error)
	return record.ID
}
