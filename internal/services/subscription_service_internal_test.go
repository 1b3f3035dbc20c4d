package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateEndDate(t *testing.T) {
	start := time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, start.AddDate(0, 1, 0), calculateEndDate(start, "monthly"))
	assert.Equal(t, start.AddDate(1, 0, 0), calculateEndDate(start, "yearly"))
	assert.Equal(t, start.AddDate(0, 0, 7), calculateEndDate(start, "weekly"))
	// Unrecognized durations behave like monthly.
	assert.Equal(t, start.AddDate(0, 1, 0), calculateEndDate(start, "lifetime"))
}

func TestMarshalLimits(t *testing.T) {
	raw, err := marshalLimits(map[string]any{"max_active_applications": 10})
	require.NoError(t, err)
	assert.JSONEq(t, `{"max_active_applications": 10}`, string(raw))

	_, err = marshalLimits(map[string]any{"max_parallel_logins": 3})
	assert.Error(t, err, "limit keys outside the schema are rejected")

	raw, err = marshalLimits(nil)
	require.NoError(t, err)
	assert.Nil(t, raw)
}
