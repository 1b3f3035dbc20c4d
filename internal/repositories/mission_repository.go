package repositories

import (
	"errors"
	"time"

	"missionhub_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrMissionNotFound     = errors.New("mission not found")
	ErrApplicationNotFound = errors.New("application not found")
)

type MissionRepository interface {
	Create(db *gorm.DB, mission *models.Mission) error
	FindByID(db *gorm.DB, id string) (*models.Mission, error)
	FindByEstablishment(db *gorm.DB, establishmentID string) ([]models.Mission, error)
	UpdateStatus(db *gorm.DB, id string, status models.MissionStatus) error
}

type MissionRepositoryImpl struct{}

func NewMissionRepository() MissionRepository {
	return &MissionRepositoryImpl{}
}

func (r *MissionRepositoryImpl) Create(db *gorm.DB, mission *models.Mission) error {
	return db.Create(mission).Error
}

func (r *MissionRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Mission, error) {
	var mission models.Mission
	err := db.First(&mission, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMissionNotFound
		}
		return nil, err
	}
	return &mission, nil
}

func (r *MissionRepositoryImpl) FindByEstablishment(db *gorm.DB, establishmentID string) ([]models.Mission, error) {
	var missions []models.Mission
	err := db.Where("establishment_id = ?", establishmentID).Order("created_at DESC").Find(&missions).Error
	return missions, err
}

func (r *MissionRepositoryImpl) UpdateStatus(db *gorm.DB, id string, status models.MissionStatus) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if status == models.MissionStatusPublished {
		updates["published_at"] = time.Now()
	}
	result := db.Model(&models.Mission{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMissionNotFound
	}
	return nil
}

type ApplicationRepository interface {
	Create(db *gorm.DB, application *models.Application) error
	FindByID(db *gorm.DB, id string) (*models.Application, error)
	FindByWorker(db *gorm.DB, workerID string) ([]models.Application, error)
	FindByMission(db *gorm.DB, missionID string) ([]models.Application, error)
	UpdateStatus(db *gorm.DB, id string, status models.ApplicationStatus) error
}

type ApplicationRepositoryImpl struct{}

func NewApplicationRepository() ApplicationRepository {
	return &ApplicationRepositoryImpl{}
}

func (r *ApplicationRepositoryImpl) Create(db *gorm.DB, application *models.Application) error {
	return db.Create(application).Error
}

func (r *ApplicationRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Application, error) {
	var application models.Application
	err := db.First(&application, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return &application, nil
}

func (r *ApplicationRepositoryImpl) FindByWorker(db *gorm.DB, workerID string) ([]models.Application, error) {
	var applications []models.Application
	err := db.Where("worker_id = ?", workerID).Order("created_at DESC").Find(&applications).Error
	return applications, err
}

func (r *ApplicationRepositoryImpl) FindByMission(db *gorm.DB, missionID string) ([]models.Application, error) {
	var applications []models.Application
	err := db.Where("mission_id = ?", missionID).Order("created_at ASC").Find(&applications).Error
	return applications, err
}

func (r *ApplicationRepositoryImpl) UpdateStatus(db *gorm.DB, id string, status models.ApplicationStatus) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if status != models.ApplicationStatusPending {
		updates["decided_at"] = time.Now()
	}
	result := db.Model(&models.Application{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrApplicationNotFound
	}
	return nil
}
