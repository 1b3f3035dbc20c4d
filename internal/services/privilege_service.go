package services

import (
	"context"
	"sync"
	"time"

	"missionhub_backend/internal/appErrors"
	"missionhub_backend/internal/audit"
	"missionhub_backend/internal/models"
	"missionhub_backend/internal/repositories"
	"missionhub_backend/internal/services/dto"

	"gorm.io/gorm"
)

// PrivilegeService resolves effective privilege values through the override
// chain: live admin override -> subscription plan default -> compiled-in
// default. Overrides read from the store are cached in-process with a TTL;
// SetOverride writes through the cache, so the writer's next Resolve sees the
// new value immediately. Other processes observe at most cacheTTL of
// staleness.
type PrivilegeService interface {
	Resolve(db *gorm.DB, category models.PrivilegeCategory, key string, actorID string) (dto.ResolvedValue, error)
	ResolveInt(db *gorm.DB, category models.PrivilegeCategory, key string, actorID string) (int, error)
	ResolveBool(db *gorm.DB, category models.PrivilegeCategory, key string, actorID string) (bool, error)
	ResolveMode(db *gorm.DB, category models.PrivilegeCategory, key string, actorID string) (models.MonetizationMode, error)
	SetOverride(ctx context.Context, db *gorm.DB, adminID string, category models.PrivilegeCategory, key, value string) (*models.PrivilegeOverride, error)
	Overrides(db *gorm.DB, category models.PrivilegeCategory) ([]models.PrivilegeOverride, error)
}

type cacheEntry struct {
	value     models.PrivilegeValue
	expiresAt time.Time
}

type privilegeService struct {
	privilegeRepo    repositories.PrivilegeRepository
	subscriptionRepo repositories.SubscriptionRepository
	sink             audit.Sink

	ttl time.Duration
	now func() time.Time

	// Read-mostly override cache. Readers take the read lock; writes
	// (population and write-through) are rare and take the write lock.
	mu    sync.RWMutex
	cache map[string]cacheEntry
}

func NewPrivilegeService(
	privilegeRepo repositories.PrivilegeRepository,
	subscriptionRepo repositories.SubscriptionRepository,
	sink audit.Sink,
	ttl time.Duration,
) PrivilegeService {
	return newPrivilegeService(privilegeRepo, subscriptionRepo, sink, ttl, time.Now)
}

// NewPrivilegeServiceWithClock injects the clock; tests use it to drive the
// TTL without sleeping.
func NewPrivilegeServiceWithClock(
	privilegeRepo repositories.PrivilegeRepository,
	subscriptionRepo repositories.SubscriptionRepository,
	sink audit.Sink,
	ttl time.Duration,
	now func() time.Time,
) PrivilegeService {
	return newPrivilegeService(privilegeRepo, subscriptionRepo, sink, ttl, now)
}

func newPrivilegeService(
	privilegeRepo repositories.PrivilegeRepository,
	subscriptionRepo repositories.SubscriptionRepository,
	sink audit.Sink,
	ttl time.Duration,
	now func() time.Time,
) *privilegeService {
	return &privilegeService{
		privilegeRepo:    privilegeRepo,
		subscriptionRepo: subscriptionRepo,
		sink:             sink,
		ttl:              ttl,
		now:              now,
		cache:            make(map[string]cacheEntry),
	}
}

func cacheKey(category models.PrivilegeCategory, key string) string {
	return string(category) + "/" + key
}

// Resolve walks the chain for one key. actorID selects the subscription tier;
// pass the empty string for category-level resolution (no plan lookup happens
// then for limit keys, and the free plan is consulted for mode keys only when
// an actor is known).
func (s *privilegeService) Resolve(db *gorm.DB, category models.PrivilegeCategory, key string, actorID string) (dto.ResolvedValue, error) {
	spec, ok := models.LookupPrivilegeKey(category, key)
	if !ok {
		// Requesting a key outside the schema is a programming error: there
		// is nothing to fall back to, and guessing a default here is exactly
		// the silent misconfiguration this error exists to surface.
		return dto.ResolvedValue{}, appErrors.ConfigurationMissing(string(category), key)
	}

	// (1) cached override, if still fresh
	ck := cacheKey(category, key)
	s.mu.RLock()
	entry, cached := s.cache[ck]
	s.mu.RUnlock()
	if cached && s.now().Before(entry.expiresAt) {
		return dto.ResolvedValue{Value: entry.value, Source: dto.SourceOverride}, nil
	}

	// (2) override store
	override, err := s.privilegeRepo.Find(db, category, key)
	switch {
	case err == nil:
		value, perr := spec.ParsePrivilegeValue(override.Value)
		if perr != nil {
			return dto.ResolvedValue{}, appErrors.Wrap(perr, appErrors.CodeConfigurationMissing,
				"Stored override has an invalid value", 500)
		}
		s.storeCache(ck, value)
		return dto.ResolvedValue{Value: value, Source: dto.SourceOverride}, nil
	case appErrors.Is(err, repositories.ErrOverrideNotFound):
		// fall through to the plan tier
	default:
		return dto.ResolvedValue{}, err
	}

	// (3) subscription plan default
	if actorID != "" {
		if value, found, err := s.planValue(db, spec, actorID); err != nil {
			return dto.ResolvedValue{}, err
		} else if found {
			return dto.ResolvedValue{Value: value, Source: dto.SourcePlan}, nil
		}
	}

	// (4) compiled-in default
	return dto.ResolvedValue{Value: spec.Default, Source: dto.SourceDefault}, nil
}

// freePlanCodeFor maps a category to its seeded free plan. Admin actors have
// no plan tier.
func freePlanCodeFor(category models.PrivilegeCategory) (string, bool) {
	switch category {
	case models.PrivilegeCategoryWorker:
		return repositories.FreePlanCode + "_" + string(models.UserRoleWorker), true
	case models.PrivilegeCategoryEstablishment:
		return repositories.FreePlanCode + "_" + string(models.UserRoleEstablishment), true
	}
	return "", false
}

// planValue resolves the actor's plan (active subscription, else the free
// BASIC plan) and reads the key's plan-tier default from it.
func (s *privilegeService) planValue(db *gorm.DB, spec models.PrivilegeKeySpec, actorID string) (models.PrivilegeValue, bool, error) {
	if spec.PlanKey == "" && spec.Kind != models.PrivilegeKindMode {
		return models.PrivilegeValue{}, false, nil
	}

	var plan *models.SubscriptionPlan
	subscription, err := s.subscriptionRepo.FindActiveSubscription(db, actorID, s.now())
	switch {
	case err == nil:
		plan = &subscription.Plan
	case appErrors.Is(err, repositories.ErrSubscriptionNotFound):
		code, ok := freePlanCodeFor(spec.Category)
		if !ok {
			return models.PrivilegeValue{}, false, nil
		}
		plan, err = s.subscriptionRepo.FindPlanByCode(db, code)
		if appErrors.Is(err, repositories.ErrSubscriptionPlanNotFound) {
			return models.PrivilegeValue{}, false, nil
		}
		if err != nil {
			return models.PrivilegeValue{}, false, err
		}
	default:
		return models.PrivilegeValue{}, false, err
	}

	if spec.Kind == models.PrivilegeKindMode {
		if plan.MonetizationMode == "" {
			return models.PrivilegeValue{}, false, nil
		}
		return models.ModeValue(plan.MonetizationMode), true, nil
	}

	raw, ok := plan.LimitValue(spec.PlanKey)
	if !ok {
		return models.PrivilegeValue{}, false, nil
	}
	value, perr := spec.ParsePlanValue(raw)
	if perr != nil {
		return models.PrivilegeValue{}, false, appErrors.Wrap(perr, appErrors.CodeConfigurationMissing,
			"Plan limit has an invalid value", 500)
	}
	return value, true, nil
}

func (s *privilegeService) ResolveInt(db *gorm.DB, category models.PrivilegeCategory, key string, actorID string) (int, error) {
	resolved, err := s.Resolve(db, category, key, actorID)
	if err != nil {
		return 0, err
	}
	return resolved.Value.Int, nil
}

func (s *privilegeService) ResolveBool(db *gorm.DB, category models.PrivilegeCategory, key string, actorID string) (bool, error) {
	resolved, err := s.Resolve(db, category, key, actorID)
	if err != nil {
		return false, err
	}
	return resolved.Value.Bool, nil
}

func (s *privilegeService) ResolveMode(db *gorm.DB, category models.PrivilegeCategory, key string, actorID string) (models.MonetizationMode, error) {
	resolved, err := s.Resolve(db, category, key, actorID)
	if err != nil {
		return "", err
	}
	return resolved.Value.Mode, nil
}

// SetOverride validates the value against the closed key schema, persists it
// and writes the new value through the cache, so this process observes it
// immediately rather than after TTL expiry.
func (s *privilegeService) SetOverride(ctx context.Context, db *gorm.DB, adminID string, category models.PrivilegeCategory, key, value string) (*models.PrivilegeOverride, error) {
	spec, ok := models.LookupPrivilegeKey(category, key)
	if !ok {
		return nil, appErrors.ErrUnknownPrivilegeKey.WithDetails(map[string]string{
			"category": string(category), "key": key,
		})
	}

	parsed, err := spec.ParsePrivilegeValue(value)
	if err != nil {
		return nil, appErrors.ValidationError(err.Error())
	}

	override := &models.PrivilegeOverride{
		Category:  category,
		Key:       key,
		Value:     parsed.String(),
		UpdatedBy: adminID,
	}
	if err := s.privilegeRepo.Upsert(db, override); err != nil {
		return nil, err
	}

	s.storeCache(cacheKey(category, key), parsed)

	s.sink.Emit(ctx, audit.Event{
		Type:    audit.EventOverrideSet,
		ActorID: adminID,
		Outcome: "set",
		Details: map[string]any{"category": category, "key": key, "value": parsed.String()},
		At:      s.now(),
	})
	return override, nil
}

func (s *privilegeService) Overrides(db *gorm.DB, category models.PrivilegeCategory) ([]models.PrivilegeOverride, error) {
	return s.privilegeRepo.FindByCategory(db, category)
}

func (s *privilegeService) storeCache(key string, value models.PrivilegeValue) {
	s.mu.Lock()
	s.cache[key] = cacheEntry{value: value, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
}
