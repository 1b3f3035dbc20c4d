package models

import "time"

type Notification struct {
	BaseModel
	UserID  string `gorm:"not null;index"`
	Type    string `gorm:"not null"`
	Title   string
	Message string
	IsRead  bool `gorm:"default:false"`
	ReadAt  *time.Time
}

const (
	NotificationTypeVerificationValidated = "verification_validated"
	NotificationTypeVerificationRejected  = "verification_rejected"
)

// AuditLog is the persisted form of an audit event: one row per quota
// decision and verification transition.
type AuditLog struct {
	ID        string    `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	EventType string    `gorm:"not null;index"`
	ActorID   string    `gorm:"index"`
	EntityID  string    `gorm:"index"`
	Outcome   string    `gorm:"not null"`
	Details   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"default:now();index"`
}
