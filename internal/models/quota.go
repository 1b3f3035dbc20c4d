package models

import "time"

// QuotaCounter is the per-actor, per-kind enforcement counter. It is a cached
// derivative of the resource tables and must stay transactionally coupled to
// them: every mutation happens inside the same transaction as the resource
// write it protects.
type QuotaCounter struct {
	ID           string       `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	ActorID      string       `gorm:"not null;uniqueIndex:idx_quota_actor_kind"`
	ResourceKind ResourceKind `gorm:"type:varchar(20);not null;uniqueIndex:idx_quota_actor_kind"`
	ActiveCount  int          `gorm:"not null;default:0"`
	CreatedAt    time.Time    `gorm:"default:now()"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime"`
}

// QuotaReservation records which resource instance holds a counted claim, so
// that release is idempotent per resource id instead of a bare decrement.
type QuotaReservation struct {
	ID           string           `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	ActorID      string           `gorm:"not null;index"`
	ResourceKind ResourceKind     `gorm:"type:varchar(20);not null;uniqueIndex:idx_reservation_kind_resource"`
	ResourceID   string           `gorm:"not null;uniqueIndex:idx_reservation_kind_resource"`
	Mode         MonetizationMode `gorm:"type:varchar(20);not null"`
	CreatedAt    time.Time        `gorm:"default:now()"`
}
