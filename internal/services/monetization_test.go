package services

import (
	"testing"

	"missionhub_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrategyFor(t *testing.T) {
	sub := strategyFor(models.MonetizationModeSubscription)
	assert.True(t, sub.Gated)
	assert.False(t, sub.DebitsCredits)
	assert.False(t, sub.ChargesOnAccept)

	credits := strategyFor(models.MonetizationModeCredits)
	assert.True(t, credits.Gated)
	assert.True(t, credits.DebitsCredits)

	commission := strategyFor(models.MonetizationModeCommission)
	assert.False(t, commission.Gated)
	assert.True(t, commission.ChargesOnAccept)

	// Unknown modes fall back to plain subscription gating.
	unknown := strategyFor(models.MonetizationMode("BARTER"))
	assert.Equal(t, sub, unknown)
}

func TestLimitKeyFor(t *testing.T) {
	key, err := limitKeyFor(models.ResourceKindApplication, models.PrivilegeCategoryWorker)
	require.NoError(t, err)
	assert.Equal(t, models.KeyWorkerFreeApplicationsLimit, key)

	key, err = limitKeyFor(models.ResourceKindMission, models.PrivilegeCategoryWorker)
	require.NoError(t, err)
	assert.Equal(t, models.KeyWorkerFreeMissionsLimit, key)

	key, err = limitKeyFor(models.ResourceKindMission, models.PrivilegeCategoryEstablishment)
	require.NoError(t, err)
	assert.Equal(t, models.KeyEstabFreeMissionsLimit, key)

	_, err = limitKeyFor(models.ResourceKindApplication, models.PrivilegeCategoryEstablishment)
	assert.Error(t, err)

	_, err = limitKeyFor(models.ResourceKindMission, models.PrivilegeCategoryAdmin)
	assert.Error(t, err)
}

func TestModeKeyFor(t *testing.T) {
	assert.Equal(t, models.KeyWorkerMonetizationMode, modeKeyFor(models.PrivilegeCategoryWorker))
	assert.Equal(t, models.KeyEstabMonetizationMode, modeKeyFor(models.PrivilegeCategoryEstablishment))
}
