package repositories

import (
	"errors"

	"missionhub_backend/internal/models"

	"gorm.io/gorm"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepository interface {
	CreateWorkerProfile(db *gorm.DB, profile *models.WorkerProfile) error
	FindWorkerProfileByID(db *gorm.DB, id string) (*models.WorkerProfile, error)
	FindWorkerProfileByUserID(db *gorm.DB, userID string) (*models.WorkerProfile, error)

	CreateEstablishmentProfile(db *gorm.DB, profile *models.EstablishmentProfile) error
	FindEstablishmentProfileByID(db *gorm.DB, id string) (*models.EstablishmentProfile, error)
	FindEstablishmentProfileByUserID(db *gorm.DB, userID string) (*models.EstablishmentProfile, error)

	CountPendingDiplomas(db *gorm.DB, profileID string) (int64, error)
	AddDiploma(db *gorm.DB, diploma *models.DiplomaDocument) error
}

type ProfileRepositoryImpl struct{}

func NewProfileRepository() ProfileRepository {
	return &ProfileRepositoryImpl{}
}

func (r *ProfileRepositoryImpl) CreateWorkerProfile(db *gorm.DB, profile *models.WorkerProfile) error {
	return db.Create(profile).Error
}

func (r *ProfileRepositoryImpl) FindWorkerProfileByID(db *gorm.DB, id string) (*models.WorkerProfile, error) {
	var profile models.WorkerProfile
	err := db.First(&profile, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepositoryImpl) FindWorkerProfileByUserID(db *gorm.DB, userID string) (*models.WorkerProfile, error) {
	var profile models.WorkerProfile
	err := db.Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepositoryImpl) CreateEstablishmentProfile(db *gorm.DB, profile *models.EstablishmentProfile) error {
	return db.Create(profile).Error
}

func (r *ProfileRepositoryImpl) FindEstablishmentProfileByID(db *gorm.DB, id string) (*models.EstablishmentProfile, error) {
	var profile models.EstablishmentProfile
	err := db.First(&profile, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepositoryImpl) FindEstablishmentProfileByUserID(db *gorm.DB, userID string) (*models.EstablishmentProfile, error) {
	var profile models.EstablishmentProfile
	err := db.Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepositoryImpl) CountPendingDiplomas(db *gorm.DB, profileID string) (int64, error) {
	var count int64
	err := db.Model(&models.DiplomaDocument{}).
		Where("profile_id = ? AND status = ?", profileID, models.DiplomaStatusPending).
		Count(&count).Error
	return count, err
}

func (r *ProfileRepositoryImpl) AddDiploma(db *gorm.DB, diploma *models.DiplomaDocument) error {
	return db.Create(diploma).Error
}
