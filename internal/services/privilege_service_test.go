package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"missionhub_backend/internal/appErrors"
	"missionhub_backend/internal/audit"
	"missionhub_backend/internal/models"
	"missionhub_backend/internal/repositories"
	"missionhub_backend/internal/services"
	"missionhub_backend/internal/services/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeOverrideStore is an in-memory PrivilegeRepository. A single instance
// shared between two services stands in for the database two processes read.
type fakeOverrideStore struct {
	mu        sync.Mutex
	overrides map[string]*models.PrivilegeOverride
}

func newFakeOverrideStore() *fakeOverrideStore {
	return &fakeOverrideStore{overrides: make(map[string]*models.PrivilegeOverride)}
}

func (f *fakeOverrideStore) key(category models.PrivilegeCategory, key string) string {
	return string(category) + "/" + key
}

func (f *fakeOverrideStore) Upsert(_ *gorm.DB, override *models.PrivilegeOverride) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *override
	f.overrides[f.key(override.Category, override.Key)] = &copied
	return nil
}

func (f *fakeOverrideStore) Find(_ *gorm.DB, category models.PrivilegeCategory, key string) (*models.PrivilegeOverride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	override, ok := f.overrides[f.key(category, key)]
	if !ok {
		return nil, repositories.ErrOverrideNotFound
	}
	copied := *override
	return &copied, nil
}

func (f *fakeOverrideStore) FindByCategory(_ *gorm.DB, category models.PrivilegeCategory) ([]models.PrivilegeOverride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PrivilegeOverride
	for _, o := range f.overrides {
		if o.Category == category {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOverrideStore) Delete(_ *gorm.DB, category models.PrivilegeCategory, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := f.key(category, key)
	if _, ok := f.overrides[k]; !ok {
		return repositories.ErrOverrideNotFound
	}
	delete(f.overrides, k)
	return nil
}

// fakeSubscriptionStore serves plan lookups; everything else is unused by the
// resolver.
type fakeSubscriptionStore struct {
	repositories.SubscriptionRepository

	mu            sync.Mutex
	subscriptions map[string]*models.Subscription
	plansByCode   map[string]*models.SubscriptionPlan
}

func newFakeSubscriptionStore() *fakeSubscriptionStore {
	return &fakeSubscriptionStore{
		subscriptions: make(map[string]*models.Subscription),
		plansByCode:   make(map[string]*models.SubscriptionPlan),
	}
}

func (f *fakeSubscriptionStore) FindActiveSubscription(_ *gorm.DB, userID string, now time.Time) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subscriptions[userID]
	if !ok || sub.EndDate.Before(now) {
		return nil, repositories.ErrSubscriptionNotFound
	}
	copied := *sub
	return &copied, nil
}

func (f *fakeSubscriptionStore) FindPlanByCode(_ *gorm.DB, code string) (*models.SubscriptionPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	plan, ok := f.plansByCode[code]
	if !ok {
		return nil, repositories.ErrSubscriptionPlanNotFound
	}
	copied := *plan
	return &copied, nil
}

// captureSink records emitted audit events.
type captureSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *captureSink) Emit(_ context.Context, event audit.Event) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newResolver(store *fakeOverrideStore, subs *fakeSubscriptionStore, clock *testClock) services.PrivilegeService {
	return services.NewPrivilegeServiceWithClock(store, subs, &captureSink{}, 5*time.Minute, clock.Now)
}

func TestResolve_DefaultWhenNothingConfigured(t *testing.T) {
	svc := newResolver(newFakeOverrideStore(), newFakeSubscriptionStore(), newTestClock())

	resolved, err := svc.Resolve(nil, models.PrivilegeCategoryWorker, models.KeyWorkerFreeApplicationsLimit, "")
	require.NoError(t, err)
	assert.Equal(t, dto.SourceDefault, resolved.Source)
	assert.Equal(t, 3, resolved.Value.Int)
}

func TestResolve_PlanBeatsDefault(t *testing.T) {
	subs := newFakeSubscriptionStore()
	plan := &models.SubscriptionPlan{
		Code:   "WORKER_PRO",
		Limits: []byte(`{"max_active_applications": 20}`),
	}
	plan.ID = "plan-1"
	subs.plansByCode[plan.Code] = plan
	subs.subscriptions["actor-1"] = &models.Subscription{
		UserID:  "actor-1",
		Status:  models.SubscriptionStatusActive,
		EndDate: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		Plan:    *plan,
	}

	svc := newResolver(newFakeOverrideStore(), subs, newTestClock())

	resolved, err := svc.Resolve(nil, models.PrivilegeCategoryWorker, models.KeyWorkerFreeApplicationsLimit, "actor-1")
	require.NoError(t, err)
	assert.Equal(t, dto.SourcePlan, resolved.Source)
	assert.Equal(t, 20, resolved.Value.Int)
}

func TestResolve_LapsedSubscriptionFallsBackToFreePlan(t *testing.T) {
	subs := newFakeSubscriptionStore()
	free := &models.SubscriptionPlan{
		Code:   repositories.FreePlanCode + "_worker",
		Limits: []byte(`{"max_active_applications": 3}`),
	}
	subs.plansByCode[free.Code] = free
	subs.subscriptions["actor-1"] = &models.Subscription{
		UserID:  "actor-1",
		Status:  models.SubscriptionStatusActive,
		EndDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), // already over
	}

	svc := newResolver(newFakeOverrideStore(), subs, newTestClock())

	resolved, err := svc.Resolve(nil, models.PrivilegeCategoryWorker, models.KeyWorkerFreeApplicationsLimit, "actor-1")
	require.NoError(t, err)
	assert.Equal(t, dto.SourcePlan, resolved.Source)
	assert.Equal(t, 3, resolved.Value.Int)
}

func TestResolve_OverrideBeatsPlanAndDefault(t *testing.T) {
	store := newFakeOverrideStore()
	subs := newFakeSubscriptionStore()
	clock := newTestClock()
	svc := newResolver(store, subs, clock)

	_, err := svc.SetOverride(context.Background(), nil, "admin-1",
		models.PrivilegeCategoryWorker, models.KeyWorkerFreeApplicationsLimit, "10")
	require.NoError(t, err)

	resolved, err := svc.Resolve(nil, models.PrivilegeCategoryWorker, models.KeyWorkerFreeApplicationsLimit, "actor-1")
	require.NoError(t, err)
	assert.Equal(t, dto.SourceOverride, resolved.Source)
	assert.Equal(t, 10, resolved.Value.Int)
}

func TestResolve_UnknownKeyIsConfigurationMissing(t *testing.T) {
	svc := newResolver(newFakeOverrideStore(), newFakeSubscriptionStore(), newTestClock())

	_, err := svc.Resolve(nil, models.PrivilegeCategoryWorker, "no_such_key", "")
	require.Error(t, err)
	var appErr *appErrors.AppError
	require.True(t, appErrors.As(err, &appErr))
	assert.Equal(t, appErrors.CodeConfigurationMissing, appErr.Code)
}

func TestResolve_KeyFromWrongCategoryIsRejected(t *testing.T) {
	svc := newResolver(newFakeOverrideStore(), newFakeSubscriptionStore(), newTestClock())

	// An establishment key queried under the worker category must not leak.
	_, err := svc.Resolve(nil, models.PrivilegeCategoryWorker, models.KeyEstabFreeMissionsLimit, "")
	require.Error(t, err)
}

func TestSetOverride_RejectsUnknownKeyAndBadValues(t *testing.T) {
	store := newFakeOverrideStore()
	svc := newResolver(store, newFakeSubscriptionStore(), newTestClock())
	ctx := context.Background()

	_, err := svc.SetOverride(ctx, nil, "admin-1", models.PrivilegeCategoryWorker, "no_such_key", "5")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnknownPrivilegeKey))

	_, err = svc.SetOverride(ctx, nil, "admin-1",
		models.PrivilegeCategoryWorker, models.KeyWorkerFreeApplicationsLimit, "not-a-number")
	require.Error(t, err)

	_, err = svc.SetOverride(ctx, nil, "admin-1",
		models.PrivilegeCategoryWorker, models.KeyWorkerMonetizationMode, "BARTER")
	require.Error(t, err)

	// Nothing was stored by the rejected writes.
	_, err = store.Find(nil, models.PrivilegeCategoryWorker, models.KeyWorkerFreeApplicationsLimit)
	assert.True(t, appErrors.Is(err, repositories.ErrOverrideNotFound))
}

func TestSetOverride_WriterSeesNewValueImmediately(t *testing.T) {
	store := newFakeOverrideStore()
	clock := newTestClock()
	svc := newResolver(store, newFakeSubscriptionStore(), clock)
	ctx := context.Background()

	_, err := svc.SetOverride(ctx, nil, "admin-1",
		models.PrivilegeCategoryWorker, models.KeyWorkerFreeApplicationsLimit, "7")
	require.NoError(t, err)

	// Same instance, same instant: the write went through the cache.
	n, err := svc.ResolveInt(nil, models.PrivilegeCategoryWorker, models.KeyWorkerFreeApplicationsLimit, "")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

// Two resolver instances over one store: reader A caches the old value, the
// override changes through B, and A keeps serving the stale value until its
// TTL passes. Staleness is bounded, not zero.
func TestResolve_StalenessIsBoundedByTTL(t *testing.T) {
	store := newFakeOverrideStore()
	clock := newTestClock()
	ctx := context.Background()

	readerA := newResolver(store, newFakeSubscriptionStore(), clock)
	writerB := newResolver(store, newFakeSubscriptionStore(), clock)

	_, err := writerB.SetOverride(ctx, nil, "admin-1",
		models.PrivilegeCategoryWorker, models.KeyWorkerFreeApplicationsLimit, "5")
	require.NoError(t, err)

	// A populates its cache with 5.
	n, err := readerA.ResolveInt(nil, models.PrivilegeCategoryWorker, models.KeyWorkerFreeApplicationsLimit, "")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	// Override changes through B.
	_, err = writerB.SetOverride(ctx, nil, "admin-1",
		models.PrivilegeCategoryWorker, models.KeyWorkerFreeApplicationsLimit, "9")
	require.NoError(t, err)

	// Inside the TTL window A still serves 5, B already serves 9.
	n, err = readerA.ResolveInt(nil, models.PrivilegeCategoryWorker, models.KeyWorkerFreeApplicationsLimit, "")
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = writerB.ResolveInt(nil, models.PrivilegeCategoryWorker, models.KeyWorkerFreeApplicationsLimit, "")
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	// Past the TTL, A refetches.
	clock.Advance(5*time.Minute + time.Second)
	n, err = readerA.ResolveInt(nil, models.PrivilegeCategoryWorker, models.KeyWorkerFreeApplicationsLimit, "")
	require.NoError(t, err)
	assert.Equal(t, 9, n)
}

func TestResolve_ModeComesFromPlan(t *testing.T) {
	subs := newFakeSubscriptionStore()
	plan := &models.SubscriptionPlan{
		Code:             "WORKER_CREDITS",
		MonetizationMode: models.MonetizationModeCredits,
	}
	subs.plansByCode[plan.Code] = plan
	subs.subscriptions["actor-1"] = &models.Subscription{
		UserID:  "actor-1",
		Status:  models.SubscriptionStatusActive,
		EndDate: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		Plan:    *plan,
	}

	svc := newResolver(newFakeOverrideStore(), subs, newTestClock())

	mode, err := svc.ResolveMode(nil, models.PrivilegeCategoryWorker, models.KeyWorkerMonetizationMode, "actor-1")
	require.NoError(t, err)
	assert.Equal(t, models.MonetizationModeCredits, mode)
}
