package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// PrivilegeOverride is one administrator-set override in the config store.
// (Category, Key) is unique; the value is stored as its string form and
// interpreted against the closed key schema below. Overrides are category
// scoped: they change the default for a whole role, never one actor.
type PrivilegeOverride struct {
	ID        string            `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Category  PrivilegeCategory `gorm:"type:varchar(20);not null;uniqueIndex:idx_privilege_category_key"`
	Key       string            `gorm:"not null;uniqueIndex:idx_privilege_category_key"`
	Value     string            `gorm:"not null"`
	UpdatedBy string
	CreatedAt time.Time `gorm:"default:now()"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

type PrivilegeKind string

const (
	PrivilegeKindInt  PrivilegeKind = "int"
	PrivilegeKindBool PrivilegeKind = "bool"
	PrivilegeKindMode PrivilegeKind = "mode"
)

// PrivilegeValue is a resolved, typed privilege value. Exactly one of the
// typed fields is meaningful, selected by Kind.
type PrivilegeValue struct {
	Kind PrivilegeKind
	Int  int
	Bool bool
	Mode MonetizationMode
}

func IntValue(v int) PrivilegeValue {
	return PrivilegeValue{Kind: PrivilegeKindInt, Int: v}
}

func BoolValue(v bool) PrivilegeValue {
	return PrivilegeValue{Kind: PrivilegeKindBool, Bool: v}
}

func ModeValue(v MonetizationMode) PrivilegeValue {
	return PrivilegeValue{Kind: PrivilegeKindMode, Mode: v}
}

func (v PrivilegeValue) String() string {
	switch v.Kind {
	case PrivilegeKindInt:
		return strconv.Itoa(v.Int)
	case PrivilegeKindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return string(v.Mode)
	}
}

// PrivilegeKeySpec describes one known privilege key: which category it
// belongs to, how its stored string is typed, which plan limit key (if any)
// supplies the subscription-tier default, and the compiled-in fallback.
// Unknown keys are rejected at the boundary instead of passed through.
type PrivilegeKeySpec struct {
	Key      string
	Category PrivilegeCategory
	Kind     PrivilegeKind
	PlanKey  string // key inside SubscriptionPlan.Limits; empty = no plan tier
	Default  PrivilegeValue
}

// Plan limit keys referenced by the schema.
const (
	PlanKeyMaxActiveApplications = "max_active_applications"
	PlanKeyMaxActiveMissions     = "max_active_missions"
	PlanKeyPrioritySupport       = "priority_support"
)

// Privilege keys (persisted form, snake_case).
const (
	KeyWorkerFreeApplicationsLimit = "worker_free_applications_limit"
	KeyWorkerFreeMissionsLimit     = "worker_free_missions_limit"
	KeyWorkerMonetizationMode      = "worker_monetization_mode"
	KeyWorkerPrioritySupport       = "worker_priority_support"
	KeyEstabFreeMissionsLimit      = "estab_free_missions_limit"
	KeyEstabMonetizationMode       = "estab_monetization_mode"
	KeyEstabFeaturedListings       = "estab_featured_listings"
	KeyAdminDailyValidationsLimit  = "admin_daily_validations_limit"
)

// KnownPlanLimitKeys is the set of limit keys a plan's Limits map may carry.
var KnownPlanLimitKeys = map[string]struct{}{
	PlanKeyMaxActiveApplications: {},
	PlanKeyMaxActiveMissions:     {},
	PlanKeyPrioritySupport:       {},
}

// privilegeSchema is the closed set of keys the config store accepts.
var privilegeSchema = map[string]PrivilegeKeySpec{
	KeyWorkerFreeApplicationsLimit: {
		Key:      KeyWorkerFreeApplicationsLimit,
		Category: PrivilegeCategoryWorker,
		Kind:     PrivilegeKindInt,
		PlanKey:  PlanKeyMaxActiveApplications,
		Default:  IntValue(3),
	},
	KeyWorkerFreeMissionsLimit: {
		Key:      KeyWorkerFreeMissionsLimit,
		Category: PrivilegeCategoryWorker,
		Kind:     PrivilegeKindInt,
		PlanKey:  PlanKeyMaxActiveMissions,
		Default:  IntValue(1),
	},
	KeyWorkerMonetizationMode: {
		Key:      KeyWorkerMonetizationMode,
		Category: PrivilegeCategoryWorker,
		Kind:     PrivilegeKindMode,
		Default:  ModeValue(MonetizationModeSubscription),
	},
	KeyWorkerPrioritySupport: {
		Key:      KeyWorkerPrioritySupport,
		Category: PrivilegeCategoryWorker,
		Kind:     PrivilegeKindBool,
		PlanKey:  PlanKeyPrioritySupport,
		Default:  BoolValue(false),
	},
	KeyEstabFreeMissionsLimit: {
		Key:      KeyEstabFreeMissionsLimit,
		Category: PrivilegeCategoryEstablishment,
		Kind:     PrivilegeKindInt,
		PlanKey:  PlanKeyMaxActiveMissions,
		Default:  IntValue(5),
	},
	KeyEstabMonetizationMode: {
		Key:      KeyEstabMonetizationMode,
		Category: PrivilegeCategoryEstablishment,
		Kind:     PrivilegeKindMode,
		Default:  ModeValue(MonetizationModeSubscription),
	},
	KeyEstabFeaturedListings: {
		Key:      KeyEstabFeaturedListings,
		Category: PrivilegeCategoryEstablishment,
		Kind:     PrivilegeKindBool,
		Default:  BoolValue(false),
	},
	KeyAdminDailyValidationsLimit: {
		Key:      KeyAdminDailyValidationsLimit,
		Category: PrivilegeCategoryAdmin,
		Kind:     PrivilegeKindInt,
		Default:  IntValue(200),
	},
}

// LookupPrivilegeKey returns the schema entry for key, scoped to category.
func LookupPrivilegeKey(category PrivilegeCategory, key string) (PrivilegeKeySpec, bool) {
	spec, ok := privilegeSchema[key]
	if !ok || spec.Category != category {
		return PrivilegeKeySpec{}, false
	}
	return spec, true
}

// ParsePrivilegeValue interprets a stored string against the spec's kind.
func (s PrivilegeKeySpec) ParsePrivilegeValue(raw string) (PrivilegeValue, error) {
	switch s.Kind {
	case PrivilegeKindInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return PrivilegeValue{}, fmt.Errorf("key %s expects an integer, got %q", s.Key, raw)
		}
		return IntValue(n), nil
	case PrivilegeKindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return PrivilegeValue{}, fmt.Errorf("key %s expects a boolean, got %q", s.Key, raw)
		}
		return BoolValue(b), nil
	case PrivilegeKindMode:
		mode := MonetizationMode(raw)
		switch mode {
		case MonetizationModeSubscription, MonetizationModeCredits, MonetizationModeCommission:
			return ModeValue(mode), nil
		}
		return PrivilegeValue{}, fmt.Errorf("key %s expects a monetization mode, got %q", s.Key, raw)
	}
	return PrivilegeValue{}, fmt.Errorf("key %s has unknown kind %q", s.Key, s.Kind)
}

// ParsePlanValue interprets a raw JSON plan limit against the spec's kind.
func (s PrivilegeKeySpec) ParsePlanValue(raw json.RawMessage) (PrivilegeValue, error) {
	switch s.Kind {
	case PrivilegeKindInt:
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return PrivilegeValue{}, fmt.Errorf("plan key %s expects an integer: %w", s.PlanKey, err)
		}
		return IntValue(n), nil
	case PrivilegeKindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return PrivilegeValue{}, fmt.Errorf("plan key %s expects a boolean: %w", s.PlanKey, err)
		}
		return BoolValue(b), nil
	}
	return PrivilegeValue{}, fmt.Errorf("plan key %s has no JSON form", s.PlanKey)
}
