package models

import "time"

// VerificationRecord is one review case for a worker or establishment
// profile. Mutated only through the verification state machine; the version
// column backs its compare-and-swap transitions. Terminal records are kept
// for audit, never deleted: a rejected actor submits a new record.
type VerificationRecord struct {
	ID           string                 `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	EntityType   VerificationEntityType `gorm:"type:varchar(30);not null;index:idx_verification_entity"`
	EntityID     string                 `gorm:"not null;index:idx_verification_entity"`
	Status       VerificationStatus     `gorm:"type:varchar(20);default:'pending'"`
	Version      int                    `gorm:"not null;default:1"`
	ReviewerID   *string
	Notes        string
	RejectReason string
	WithDiploma  *bool
	DecidedAt    *time.Time
	CreatedAt    time.Time `gorm:"default:now()"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}
