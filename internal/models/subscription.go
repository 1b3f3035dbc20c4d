package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type SubscriptionPlan struct {
	BaseModel
	Code             string           `gorm:"uniqueIndex;not null"` // "BASIC", "WORKER_PRO", ...
	Name             string           `gorm:"not null"`
	TargetRole       UserRole         `gorm:"type:varchar(20);not null"`
	Price            float64          `gorm:"not null"`
	Currency         string           `gorm:"default:'EUR'"`
	Duration         string           `gorm:"not null"`   // "monthly", "yearly"
	Limits           datatypes.JSON   `gorm:"type:jsonb"` // {"max_active_applications": 3, ...}
	MonetizationMode MonetizationMode `gorm:"type:varchar(20);default:'SUBSCRIPTION'"`
	IsActive         bool             `gorm:"default:true"`
}

// LimitValue looks up a limit key in the plan's JSONB limit map. The second
// return value is false when the key is absent or the map is malformed.
func (p *SubscriptionPlan) LimitValue(key string) (json.RawMessage, bool) {
	if len(p.Limits) == 0 {
		return nil, false
	}
	var limits map[string]json.RawMessage
	if err := json.Unmarshal(p.Limits, &limits); err != nil {
		return nil, false
	}
	v, ok := limits[key]
	return v, ok
}

type Subscription struct {
	BaseModel
	UserID      string             `gorm:"not null;index"`
	PlanID      string             `gorm:"not null;index"`
	Status      SubscriptionStatus `gorm:"type:varchar(20);default:'active'"`
	StartDate   time.Time
	EndDate     time.Time
	AutoRenew   bool `gorm:"default:true"`
	CancelledAt *time.Time

	// Relations
	Plan SubscriptionPlan `gorm:"foreignKey:PlanID"`
}

// CreditBalance backs the CREDITS monetization mode: one credit is debited per
// successful reservation, in the same transaction as the reservation itself.
type CreditBalance struct {
	BaseModel
	UserID  string `gorm:"uniqueIndex;not null"`
	Credits int    `gorm:"not null;default:0"`
}

// CommissionCharge is the post-hoc charge record the COMMISSION mode creates
// when an application is accepted. Payment capture is owned elsewhere.
type CommissionCharge struct {
	BaseModel
	ActorID      string       `gorm:"not null;index"`
	ResourceKind ResourceKind `gorm:"type:varchar(20);not null"`
	ResourceID   string       `gorm:"uniqueIndex;not null"`
	Status       string       `gorm:"type:varchar(20);default:'pending'"` // pending | invoiced
}
