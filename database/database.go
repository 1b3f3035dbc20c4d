package database

import (
	"fmt"

	"missionhub_backend/internal/config"
	"missionhub_backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the Postgres pool.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if cfg.Server.Env == "development" {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate brings the schema up to date.
func Migrate(db *gorm.DB) error {
	// uuid_generate_v4 backs every primary key default.
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return fmt.Errorf("failed to enable uuid-ossp: %w", err)
	}

	return db.AutoMigrate(
		&models.User{},
		&models.WorkerProfile{},
		&models.EstablishmentProfile{},
		&models.DiplomaDocument{},
		&models.SubscriptionPlan{},
		&models.Subscription{},
		&models.CreditBalance{},
		&models.CommissionCharge{},
		&models.PrivilegeOverride{},
		&models.QuotaCounter{},
		&models.QuotaReservation{},
		&models.VerificationRecord{},
		&models.Mission{},
		&models.Application{},
		&models.Notification{},
		&models.AuditLog{},
	)
}
