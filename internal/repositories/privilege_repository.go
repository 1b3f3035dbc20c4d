package repositories

import (
	"errors"
	"time"

	"missionhub_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrOverrideNotFound = errors.New("privilege override not found")

// PrivilegeRepository is the durable config store of administrator-set
// overrides, partitioned by category. (category, key) is unique and writes
// are last-writer-wins.
type PrivilegeRepository interface {
	Upsert(db *gorm.DB, override *models.PrivilegeOverride) error
	Find(db *gorm.DB, category models.PrivilegeCategory, key string) (*models.PrivilegeOverride, error)
	FindByCategory(db *gorm.DB, category models.PrivilegeCategory) ([]models.PrivilegeOverride, error)
	Delete(db *gorm.DB, category models.PrivilegeCategory, key string) error
}

type PrivilegeRepositoryImpl struct{}

func NewPrivilegeRepository() PrivilegeRepository {
	return &PrivilegeRepositoryImpl{}
}

func (r *PrivilegeRepositoryImpl) Upsert(db *gorm.DB, override *models.PrivilegeOverride) error {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "category"}, {Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      override.Value,
			"updated_by": override.UpdatedBy,
			"updated_at": time.Now(),
		}),
	}).Create(override).Error
}

func (r *PrivilegeRepositoryImpl) Find(db *gorm.DB, category models.PrivilegeCategory, key string) (*models.PrivilegeOverride, error) {
	var override models.PrivilegeOverride
	err := db.Where("category = ? AND key = ?", category, key).First(&override).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOverrideNotFound
		}
		return nil, err
	}
	return &override, nil
}

func (r *PrivilegeRepositoryImpl) FindByCategory(db *gorm.DB, category models.PrivilegeCategory) ([]models.PrivilegeOverride, error) {
	var overrides []models.PrivilegeOverride
	err := db.Where("category = ?", category).Order("key ASC").Find(&overrides).Error
	return overrides, err
}

func (r *PrivilegeRepositoryImpl) Delete(db *gorm.DB, category models.PrivilegeCategory, key string) error {
	result := db.Where("category = ? AND key = ?", category, key).Delete(&models.PrivilegeOverride{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOverrideNotFound
	}
	return nil
}
