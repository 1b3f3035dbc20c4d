package repositories

import (
	"errors"

	"missionhub_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrQuotaExceeded       = errors.New("quota exceeded")
	ErrReservationNotFound = errors.New("quota reservation not found")
)

// ReserveOutcome reports what TryReserve saw inside its critical section.
type ReserveOutcome struct {
	Reserved bool
	Limit    int
	Current  int // count after the reservation on success, at rejection otherwise
}

// QuotaRepository owns the (actor_id, resource_kind) counter rows and the
// per-resource reservation rows that make release idempotent.
//
// Every method takes the *gorm.DB it must run on. TryReserve and Release are
// meant to be called inside the same transaction as the resource write they
// protect, so counters and resource rows can never diverge: the caller opens
// the transaction, reserves, writes the resource, and commits (or everything
// rolls back together).
type QuotaRepository interface {
	TryReserve(tx *gorm.DB, actorID string, kind models.ResourceKind, resourceID string, limit int, mode models.MonetizationMode) (*ReserveOutcome, error)
	Release(tx *gorm.DB, actorID string, kind models.ResourceKind, resourceID string) (bool, error)
	CurrentCount(db *gorm.DB, actorID string, kind models.ResourceKind) (int, error)
	FindReservation(db *gorm.DB, kind models.ResourceKind, resourceID string) (*models.QuotaReservation, error)
}

type QuotaRepositoryImpl struct{}

func NewQuotaRepository() QuotaRepository {
	return &QuotaRepositoryImpl{}
}

// TryReserve performs the atomic check-and-reserve. The counter row is taken
// FOR UPDATE, so concurrent reservations for the same (actor, kind) serialize
// on the row lock; the count is compared against the limit and incremented
// while the lock is held. A naive SELECT COUNT followed by INSERT leaves a
// window where two callers both observe count < limit; this closes it.
//
// Existing counts above a freshly lowered limit are grandfathered: only the
// admission of new reservations is blocked, nothing is revoked.
func (r *QuotaRepositoryImpl) TryReserve(tx *gorm.DB, actorID string, kind models.ResourceKind, resourceID string, limit int, mode models.MonetizationMode) (*ReserveOutcome, error) {
	// Ensure the counter row exists before locking it. DoNothing keeps a
	// concurrent first-reservation race harmless.
	seed := models.QuotaCounter{ActorID: actorID, ResourceKind: kind, ActiveCount: 0}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "actor_id"}, {Name: "resource_kind"}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil {
		return nil, err
	}

	var counter models.QuotaCounter
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("actor_id = ? AND resource_kind = ?", actorID, kind).
		First(&counter).Error; err != nil {
		return nil, err
	}

	if counter.ActiveCount >= limit {
		return &ReserveOutcome{Reserved: false, Limit: limit, Current: counter.ActiveCount}, nil
	}

	reservation := models.QuotaReservation{
		ActorID:      actorID,
		ResourceKind: kind,
		ResourceID:   resourceID,
		Mode:         mode,
	}
	if err := tx.Create(&reservation).Error; err != nil {
		return nil, err
	}

	if err := tx.Model(&models.QuotaCounter{}).
		Where("id = ?", counter.ID).
		UpdateColumn("active_count", gorm.Expr("active_count + 1")).Error; err != nil {
		return nil, err
	}

	return &ReserveOutcome{Reserved: true, Limit: limit, Current: counter.ActiveCount + 1}, nil
}

// Release frees the claim held by one resource instance. Deleting the
// reservation row decides idempotency: the decrement only happens when this
// call actually removed the row, so releasing twice can never drive the
// counter negative. The delete is scoped to the owning actor, so a caller
// naming someone else's resource removes nothing and decrements nothing.
// Returns whether a reservation was released.
func (r *QuotaRepositoryImpl) Release(tx *gorm.DB, actorID string, kind models.ResourceKind, resourceID string) (bool, error) {
	result := tx.Where("actor_id = ? AND resource_kind = ? AND resource_id = ?", actorID, kind, resourceID).
		Delete(&models.QuotaReservation{})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	err := tx.Model(&models.QuotaCounter{}).
		Where("actor_id = ? AND resource_kind = ? AND active_count > 0", actorID, kind).
		UpdateColumn("active_count", gorm.Expr("active_count - 1")).Error
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *QuotaRepositoryImpl) CurrentCount(db *gorm.DB, actorID string, kind models.ResourceKind) (int, error) {
	var counter models.QuotaCounter
	err := db.Where("actor_id = ? AND resource_kind = ?", actorID, kind).First(&counter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return counter.ActiveCount, nil
}

func (r *QuotaRepositoryImpl) FindReservation(db *gorm.DB, kind models.ResourceKind, resourceID string) (*models.QuotaReservation, error) {
	var reservation models.QuotaReservation
	err := db.Where("resource_kind = ? AND resource_id = ?", kind, resourceID).First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &reservation, nil
}
