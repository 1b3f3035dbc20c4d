package models

import "github.com/lib/pq"

type WorkerProfile struct {
	BaseModel
	UserID          string `gorm:"uniqueIndex;not null"`
	Name            string `gorm:"not null"`
	ExperienceYears int    `gorm:"default:0"`
	HourlyRate      float64
	Description     string
	City            string         `gorm:"not null"`
	Skills          pq.StringArray `gorm:"type:text[]" json:"skills"`
	Languages       pq.StringArray `gorm:"type:text[]" json:"languages"`
	IsPublic        bool           `gorm:"default:true"`

	// Relations
	Diplomas []DiplomaDocument `gorm:"foreignKey:ProfileID"`
}

type EstablishmentProfile struct {
	BaseModel
	UserID        string `gorm:"uniqueIndex;not null"`
	CompanyName   string `gorm:"not null"`
	ContactPerson string
	Phone         string
	Website       string
	City          string
	CompanyType   string
	Description   string
}

// DiplomaDocument is the review-side record of a diploma a worker submitted.
// Storage and transport of the file itself live elsewhere; the verification
// flow only cares whether any diploma is still awaiting review.
type DiplomaDocument struct {
	BaseModel
	ProfileID string `gorm:"not null;index"`
	Title     string
	Status    string `gorm:"type:varchar(20);default:'pending'"` // pending | reviewed
}

const (
	DiplomaStatusPending  = "pending"
	DiplomaStatusReviewed = "reviewed"
)
