package services_test

import (
	"testing"

	"missionhub_backend/internal/appErrors"
	"missionhub_backend/internal/models"
	"missionhub_backend/internal/repositories"
	"missionhub_backend/internal/services"
	"missionhub_backend/internal/services/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSubscriptionService() services.SubscriptionService {
	return services.NewSubscriptionService(
		repositories.NewSubscriptionRepository(),
		repositories.NewUserRepository(),
	)
}

func TestSubscription_MissingPlanAndSubscriptionSurfaceAsNotFound(t *testing.T) {
	db := testDB(t)
	svc := newSubscriptionService()

	worker := createTestUser(t, db, models.UserRoleWorker)

	_, err := svc.Subscribe(db, worker.ID, &dto.SubscribeRequest{PlanID: uuid.NewString()})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrSubscriptionPlanNotFound))

	_, err = svc.ActiveSubscription(db, worker.ID)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrSubscriptionNotFound))

	err = svc.Cancel(db, worker.ID)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrSubscriptionNotFound))
}
