package models

import "time"

type Mission struct {
	BaseModel
	EstablishmentID string `gorm:"not null;index"`
	Title           string `gorm:"not null"`
	Description     string
	City            string
	HourlyRate      float64
	Status          MissionStatus `gorm:"type:varchar(20);default:'draft'"`
	PublishedAt     *time.Time
	ClosesAt        *time.Time

	// Relations
	Applications []Application `gorm:"foreignKey:MissionID"`
}

type Application struct {
	BaseModel
	MissionID string `gorm:"not null;index;uniqueIndex:idx_application_mission_worker"`
	WorkerID  string `gorm:"not null;index;uniqueIndex:idx_application_mission_worker"`
	Message   string
	Status    ApplicationStatus `gorm:"type:varchar(20);default:'pending'"`
	DecidedAt *time.Time

	// Relations
	Mission Mission `gorm:"foreignKey:MissionID"`
}
