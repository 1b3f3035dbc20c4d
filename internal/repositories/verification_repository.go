package repositories

import (
	"errors"
	"time"

	"missionhub_backend/internal/models"

	"gorm.io/gorm"
)

var (
	ErrVerificationNotFound = errors.New("verification record not found")
	ErrVersionConflict      = errors.New("verification record version conflict")
)

// VerificationRepository stores review cases. UpdateCAS is the only mutation
// path: it applies the given changes only when the stored version still
// matches, bumping the version in the same statement.
type VerificationRepository interface {
	Create(db *gorm.DB, record *models.VerificationRecord) error
	FindByID(db *gorm.DB, id string) (*models.VerificationRecord, error)
	FindOpenByEntity(db *gorm.DB, entityType models.VerificationEntityType, entityID string) (*models.VerificationRecord, error)
	FindLatestByEntity(db *gorm.DB, entityType models.VerificationEntityType, entityID string) (*models.VerificationRecord, error)
	FindByStatus(db *gorm.DB, status models.VerificationStatus, limit int) ([]models.VerificationRecord, error)
	CountDecidedSince(db *gorm.DB, reviewerID string, status models.VerificationStatus, since time.Time) (int64, error)
	UpdateCAS(db *gorm.DB, id string, expectedVersion int, updates map[string]interface{}) error
}

type VerificationRepositoryImpl struct{}

func NewVerificationRepository() VerificationRepository {
	return &VerificationRepositoryImpl{}
}

func (r *VerificationRepositoryImpl) Create(db *gorm.DB, record *models.VerificationRecord) error {
	return db.Create(record).Error
}

func (r *VerificationRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.VerificationRecord, error) {
	var record models.VerificationRecord
	err := db.First(&record, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *VerificationRepositoryImpl) FindOpenByEntity(db *gorm.DB, entityType models.VerificationEntityType, entityID string) (*models.VerificationRecord, error) {
	var record models.VerificationRecord
	err := db.Where("entity_type = ? AND entity_id = ? AND status IN ?",
		entityType, entityID,
		[]models.VerificationStatus{models.VerificationStatusPending, models.VerificationStatusInReview}).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *VerificationRepositoryImpl) FindLatestByEntity(db *gorm.DB, entityType models.VerificationEntityType, entityID string) (*models.VerificationRecord, error) {
	var record models.VerificationRecord
	err := db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVerificationNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *VerificationRepositoryImpl) FindByStatus(db *gorm.DB, status models.VerificationStatus, limit int) ([]models.VerificationRecord, error) {
	var records []models.VerificationRecord
	q := db.Where("status = ?", status).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&records).Error
	return records, err
}

func (r *VerificationRepositoryImpl) CountDecidedSince(db *gorm.DB, reviewerID string, status models.VerificationStatus, since time.Time) (int64, error) {
	var count int64
	err := db.Model(&models.VerificationRecord{}).
		Where("reviewer_id = ? AND status = ? AND decided_at >= ?", reviewerID, status, since).
		Count(&count).Error
	return count, err
}

// UpdateCAS is the compare-and-swap write. The WHERE clause carries both the
// id and the expected version; zero rows affected means another reviewer won
// the race (or the record is gone), reported as ErrVersionConflict so the
// caller can refetch and decide.
func (r *VerificationRepositoryImpl) UpdateCAS(db *gorm.DB, id string, expectedVersion int, updates map[string]interface{}) error {
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = time.Now()

	result := db.Model(&models.VerificationRecord{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}
