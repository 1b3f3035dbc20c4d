package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"missionhub_backend/internal/audit"
	"missionhub_backend/internal/models"
	"missionhub_backend/internal/repositories"
	"missionhub_backend/internal/services"
	"missionhub_backend/internal/services/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newQuotaService(db *gorm.DB) services.QuotaService {
	subscriptionRepo := repositories.NewSubscriptionRepository()
	privileges := services.NewPrivilegeService(
		repositories.NewPrivilegeRepository(), subscriptionRepo, nopSink(), time.Minute)
	return services.NewQuotaService(
		repositories.NewQuotaRepository(), subscriptionRepo,
		repositories.NewUserRepository(), privileges, nopSink())
}

func TestQuota_ReserveUpToLimitThenReject(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	svc := newQuotaService(db)

	worker := createTestUser(t, db, models.UserRoleWorker)
	subscribeToPlan(t, db, worker.ID, models.UserRoleWorker,
		`{"max_active_applications": 2}`, models.MonetizationModeSubscription)

	for i := 0; i < 2; i++ {
		result, err := svc.TryReserve(ctx, db, worker.ID, models.ResourceKindApplication)
		require.NoError(t, err)
		assert.True(t, result.OK, "reservation %d should fit under the limit", i+1)
	}

	result, err := svc.TryReserve(ctx, db, worker.ID, models.ResourceKindApplication)
	require.NoError(t, err, "a full quota is a result, not an error")
	assert.False(t, result.OK)
	assert.Equal(t, dto.ReasonQuotaExceeded, result.Reason)
	assert.Equal(t, 2, result.Limit)
	assert.Equal(t, 2, result.Current)

	status, err := svc.Status(db, worker.ID, models.ResourceKindApplication)
	require.NoError(t, err)
	assert.Equal(t, 2, status.Current, "rejected attempt must not consume quota")
	assert.Equal(t, 0, status.Remaining)
}

// N concurrent attempts against a limit of L admit exactly L, regardless of
// interleaving. This is the check-and-reserve race the row lock closes.
func TestQuota_ConcurrentReservationsAdmitExactlyLimit(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	svc := newQuotaService(db)

	const attempts = 10
	const limit = 3

	worker := createTestUser(t, db, models.UserRoleWorker)
	subscribeToPlan(t, db, worker.ID, models.UserRoleWorker,
		`{"max_active_applications": 3}`, models.MonetizationModeSubscription)

	var wg sync.WaitGroup
	results := make([]*dto.ReserveResult, attempts)
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.TryReserve(ctx, db, worker.ID, models.ResourceKindApplication)
		}(i)
	}
	wg.Wait()

	admitted := 0
	for i := 0; i < attempts; i++ {
		require.NoError(t, errs[i])
		if results[i].OK {
			admitted++
		} else {
			assert.Equal(t, dto.ReasonQuotaExceeded, results[i].Reason)
		}
	}
	assert.Equal(t, limit, admitted)

	status, err := svc.Status(db, worker.ID, models.ResourceKindApplication)
	require.NoError(t, err)
	assert.Equal(t, limit, status.Current)
}

func TestQuota_ReleaseIsIdempotentPerResource(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	svc := newQuotaService(db)

	worker := createTestUser(t, db, models.UserRoleWorker)
	subscribeToPlan(t, db, worker.ID, models.UserRoleWorker,
		`{"max_active_applications": 2}`, models.MonetizationModeSubscription)

	result, err := svc.TryReserve(ctx, db, worker.ID, models.ResourceKindApplication)
	require.NoError(t, err)
	require.True(t, result.OK)

	// First release frees the unit, the second finds nothing to free.
	require.NoError(t, svc.Release(ctx, db, worker.ID, models.ResourceKindApplication, result.ResourceID))
	require.NoError(t, svc.Release(ctx, db, worker.ID, models.ResourceKindApplication, result.ResourceID))

	status, err := svc.Status(db, worker.ID, models.ResourceKindApplication)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Current, "double release must not drive the counter negative")

	// Releasing a resource that never reserved is also a no-op.
	require.NoError(t, svc.Release(ctx, db, worker.ID, models.ResourceKindApplication, uuid.NewString()))

	status, err = svc.Status(db, worker.ID, models.ResourceKindApplication)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Current)
}

func TestQuota_RolledBackReservationLeavesNoReservedEvent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	sink := &captureSink{}
	subscriptionRepo := repositories.NewSubscriptionRepository()
	privileges := services.NewPrivilegeService(
		repositories.NewPrivilegeRepository(), subscriptionRepo, nopSink(), time.Minute)
	svc := services.NewQuotaService(
		repositories.NewQuotaRepository(), subscriptionRepo,
		repositories.NewUserRepository(), privileges, sink)

	worker := createTestUser(t, db, models.UserRoleWorker)
	subscribeToPlan(t, db, worker.ID, models.UserRoleWorker,
		`{"max_active_applications": 2}`, models.MonetizationModeSubscription)

	// The business write fails after a successful reserve; everything rolls
	// back and the ledger must not remember a reservation.
	boom := errors.New("business write failed")
	err := db.Transaction(func(tx *gorm.DB) error {
		result, err := svc.TryReserveTx(ctx, tx, worker, models.ResourceKindApplication, uuid.NewString())
		require.NoError(t, err)
		require.True(t, result.OK)
		return boom
	})
	require.ErrorIs(t, err, boom)

	sink.mu.Lock()
	for _, event := range sink.events {
		assert.NotEqual(t, audit.EventQuotaReserved, event.Type,
			"a rolled-back reservation must not be recorded as reserved")
	}
	sink.mu.Unlock()

	status, err := svc.Status(db, worker.ID, models.ResourceKindApplication)
	require.NoError(t, err)
	assert.Equal(t, 0, status.Current)

	// A committed reservation still gets its event.
	result, err := svc.TryReserve(ctx, db, worker.ID, models.ResourceKindApplication)
	require.NoError(t, err)
	require.True(t, result.OK)

	sink.mu.Lock()
	var reservedEvents int
	for _, event := range sink.events {
		if event.Type == audit.EventQuotaReserved {
			reservedEvents++
		}
	}
	sink.mu.Unlock()
	assert.Equal(t, 1, reservedEvents)
}

func TestQuota_ReleaseIsScopedToOwningActor(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	svc := newQuotaService(db)

	owner := createTestUser(t, db, models.UserRoleWorker)
	other := createTestUser(t, db, models.UserRoleWorker)
	subscribeToPlan(t, db, owner.ID, models.UserRoleWorker,
		`{"max_active_applications": 1}`, models.MonetizationModeSubscription)
	subscribeToPlan(t, db, other.ID, models.UserRoleWorker,
		`{"max_active_applications": 1}`, models.MonetizationModeSubscription)

	reserved, err := svc.TryReserve(ctx, db, owner.ID, models.ResourceKindApplication)
	require.NoError(t, err)
	require.True(t, reserved.OK)

	held, err := svc.TryReserve(ctx, db, other.ID, models.ResourceKindApplication)
	require.NoError(t, err)
	require.True(t, held.OK)

	// Naming someone else's resource id must touch neither ledger.
	require.NoError(t, svc.Release(ctx, db, other.ID, models.ResourceKindApplication, reserved.ResourceID))

	quotaRepo := repositories.NewQuotaRepository()
	_, err = quotaRepo.FindReservation(db, models.ResourceKindApplication, reserved.ResourceID)
	require.NoError(t, err, "the owner's reservation must survive a foreign release")

	ownerStatus, err := svc.Status(db, owner.ID, models.ResourceKindApplication)
	require.NoError(t, err)
	assert.Equal(t, 1, ownerStatus.Current)

	otherStatus, err := svc.Status(db, other.ID, models.ResourceKindApplication)
	require.NoError(t, err)
	assert.Equal(t, 1, otherStatus.Current, "a foreign release must not hand back quota")

	// The owner can still release their own claim.
	require.NoError(t, svc.Release(ctx, db, owner.ID, models.ResourceKindApplication, reserved.ResourceID))
	ownerStatus, err = svc.Status(db, owner.ID, models.ResourceKindApplication)
	require.NoError(t, err)
	assert.Equal(t, 0, ownerStatus.Current)
}

func TestQuota_ZeroLimitRejectsImmediately(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	svc := newQuotaService(db)

	worker := createTestUser(t, db, models.UserRoleWorker)
	subscribeToPlan(t, db, worker.ID, models.UserRoleWorker,
		`{"max_active_applications": 0}`, models.MonetizationModeSubscription)

	result, err := svc.TryReserve(ctx, db, worker.ID, models.ResourceKindApplication)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, 0, result.Limit)
}

// Lowering the limit below current usage never claws back existing resources;
// it only blocks new reservations until usage drops under the new limit.
func TestQuota_LoweredLimitGrandfathersExistingUsage(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	svc := newQuotaService(db)

	worker := createTestUser(t, db, models.UserRoleWorker)
	subscribeToPlan(t, db, worker.ID, models.UserRoleWorker,
		`{"max_active_applications": 3}`, models.MonetizationModeSubscription)

	var resourceIDs []string
	for i := 0; i < 3; i++ {
		result, err := svc.TryReserve(ctx, db, worker.ID, models.ResourceKindApplication)
		require.NoError(t, err)
		require.True(t, result.OK)
		resourceIDs = append(resourceIDs, result.ResourceID)
	}

	// Downgrade to a tier allowing one.
	subscribeToPlan(t, db, worker.ID, models.UserRoleWorker,
		`{"max_active_applications": 1}`, models.MonetizationModeSubscription)

	status, err := svc.Status(db, worker.ID, models.ResourceKindApplication)
	require.NoError(t, err)
	assert.Equal(t, 3, status.Current, "existing usage survives the downgrade")
	assert.Equal(t, 1, status.Limit)
	assert.Equal(t, 0, status.Remaining)

	result, err := svc.TryReserve(ctx, db, worker.ID, models.ResourceKindApplication)
	require.NoError(t, err)
	assert.False(t, result.OK)

	// Drop under the new limit, then headroom reappears.
	for _, id := range resourceIDs {
		require.NoError(t, svc.Release(ctx, db, worker.ID, models.ResourceKindApplication, id))
	}
	result, err = svc.TryReserve(ctx, db, worker.ID, models.ResourceKindApplication)
	require.NoError(t, err)
	assert.True(t, result.OK)
}

func TestQuota_CreditsModeDebitsAtomically(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	svc := newQuotaService(db)
	subscriptionRepo := repositories.NewSubscriptionRepository()

	worker := createTestUser(t, db, models.UserRoleWorker)
	subscribeToPlan(t, db, worker.ID, models.UserRoleWorker,
		`{"max_active_applications": 5}`, models.MonetizationModeCredits)
	require.NoError(t, subscriptionRepo.GrantCredits(db, worker.ID, 1))

	result, err := svc.TryReserve(ctx, db, worker.ID, models.ResourceKindApplication)
	require.NoError(t, err)
	assert.True(t, result.OK)

	balance, err := subscriptionRepo.CreditBalance(db, worker.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)

	// No credits left: rejected, and neither the balance nor the counter move.
	result, err = svc.TryReserve(ctx, db, worker.ID, models.ResourceKindApplication)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.Equal(t, dto.ReasonInsufficientCredits, result.Reason)

	balance, err = subscriptionRepo.CreditBalance(db, worker.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)

	status, err := svc.Status(db, worker.ID, models.ResourceKindApplication)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Current)
}

func TestQuota_CommissionModeSkipsGateAndChargesOnAccept(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	svc := newQuotaService(db)
	subscriptionRepo := repositories.NewSubscriptionRepository()

	worker := createTestUser(t, db, models.UserRoleWorker)
	subscribeToPlan(t, db, worker.ID, models.UserRoleWorker,
		`{"max_active_applications": 1}`, models.MonetizationModeCommission)

	// Commission actors are not capped by the limit.
	var last *dto.ReserveResult
	for i := 0; i < 3; i++ {
		result, err := svc.TryReserve(ctx, db, worker.ID, models.ResourceKindApplication)
		require.NoError(t, err)
		require.True(t, result.OK)
		last = result
	}

	// Acceptance creates one pending charge; replays stay one.
	require.NoError(t, svc.ResourceAccepted(ctx, db, models.ResourceKindApplication, last.ResourceID))
	require.NoError(t, svc.ResourceAccepted(ctx, db, models.ResourceKindApplication, last.ResourceID))

	charges, err := subscriptionRepo.FindPendingCharges(db, worker.ID)
	require.NoError(t, err)
	require.Len(t, charges, 1)
	assert.Equal(t, last.ResourceID, charges[0].ResourceID)
}
