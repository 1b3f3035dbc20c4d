package services

import (
	"context"
	"math"

	"missionhub_backend/internal/appErrors"
	"missionhub_backend/internal/audit"
	"missionhub_backend/internal/models"
	"missionhub_backend/internal/repositories"
	"missionhub_backend/internal/services/dto"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuotaService is the enforcement entry point for quota-consuming actions.
//
// TryReserve opens its own transaction; TryReserveTx joins a caller-owned one
// so the business write commits or rolls back together with the reservation.
// A rejected attempt is an ordinary result, not an error.
type QuotaService interface {
	TryReserve(ctx context.Context, db *gorm.DB, actorID string, kind models.ResourceKind) (*dto.ReserveResult, error)
	TryReserveTx(ctx context.Context, tx *gorm.DB, actor *models.User, kind models.ResourceKind, resourceID string) (*dto.ReserveResult, error)
	Release(ctx context.Context, db *gorm.DB, actorID string, kind models.ResourceKind, resourceID string) error
	ReleaseTx(ctx context.Context, tx *gorm.DB, actorID string, kind models.ResourceKind, resourceID string) error
	Status(db *gorm.DB, actorID string, kind models.ResourceKind) (*dto.QuotaStatusResponse, error)
	ReserveCommitted(ctx context.Context, actorID string, kind models.ResourceKind, result *dto.ReserveResult)
	ResourceAccepted(ctx context.Context, db *gorm.DB, kind models.ResourceKind, resourceID string) error
}

type quotaService struct {
	quotaRepo        repositories.QuotaRepository
	subscriptionRepo repositories.SubscriptionRepository
	userRepo         repositories.UserRepository
	privileges       PrivilegeService
	sink             audit.Sink
}

func NewQuotaService(
	quotaRepo repositories.QuotaRepository,
	subscriptionRepo repositories.SubscriptionRepository,
	userRepo repositories.UserRepository,
	privileges PrivilegeService,
	sink audit.Sink,
) QuotaService {
	return &quotaService{
		quotaRepo:        quotaRepo,
		subscriptionRepo: subscriptionRepo,
		userRepo:         userRepo,
		privileges:       privileges,
		sink:             sink,
	}
}

func (s *quotaService) TryReserve(ctx context.Context, db *gorm.DB, actorID string, kind models.ResourceKind) (*dto.ReserveResult, error) {
	actor, err := s.userRepo.FindByID(db, actorID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrUserNotFound) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, err
	}

	// The reservation gets its own resource id so a later business write (or
	// an explicit release) can refer to this exact claim.
	resourceID := uuid.NewString()

	var result *dto.ReserveResult
	err = db.Transaction(func(tx *gorm.DB) error {
		r, err := s.TryReserveTx(ctx, tx, actor, kind, resourceID)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.ReserveCommitted(ctx, actorID, kind, result)
	return result, nil
}

// ReserveCommitted records a successful reservation once the transaction that
// holds it has committed. TryReserveTx leaves the success event to this hook
// so a rolled-back business write leaves no audit trace of a reservation that
// never existed.
func (s *quotaService) ReserveCommitted(ctx context.Context, actorID string, kind models.ResourceKind, result *dto.ReserveResult) {
	if result == nil || !result.OK {
		return
	}
	s.emit(ctx, audit.EventQuotaReserved, actorID, result.ResourceID, "reserved", map[string]any{
		"resource_kind": kind, "limit": result.Limit, "current": result.Current, "mode": result.Mode,
	})
}

// TryReserveTx performs the atomic check-and-reserve inside tx. The mutation
// runs under a savepoint: on rejection everything it touched is rolled back
// and the caller's surrounding transaction stays usable, with a plain
// not-reserved result returned.
func (s *quotaService) TryReserveTx(ctx context.Context, tx *gorm.DB, actor *models.User, kind models.ResourceKind, resourceID string) (*dto.ReserveResult, error) {
	category := models.CategoryForRole(actor.Role)

	limitKey, err := limitKeyFor(kind, category)
	if err != nil {
		return nil, appErrors.ValidationError(err.Error())
	}

	mode, err := s.privileges.ResolveMode(tx, category, modeKeyFor(category), actor.ID)
	if err != nil {
		return nil, err
	}
	strategy := strategyFor(mode)

	limit := math.MaxInt32
	if strategy.Gated {
		limit, err = s.privileges.ResolveInt(tx, category, limitKey, actor.ID)
		if err != nil {
			return nil, err
		}
	}

	var outcome *repositories.ReserveOutcome
	txErr := tx.Transaction(func(inner *gorm.DB) error {
		if strategy.DebitsCredits {
			// Debit and reservation are one atomic unit: either failure
			// rolls back both.
			if err := s.subscriptionRepo.DebitCredit(inner, actor.ID); err != nil {
				return err
			}
		}

		o, err := s.quotaRepo.TryReserve(inner, actor.ID, kind, resourceID, limit, mode)
		if err != nil {
			return err
		}
		outcome = o
		if !o.Reserved {
			return repositories.ErrQuotaExceeded
		}
		return nil
	})

	switch {
	case txErr == nil:
		return &dto.ReserveResult{
			OK:         true,
			Limit:      outcome.Limit,
			Current:    outcome.Current,
			ResourceID: resourceID,
			Mode:       string(mode),
		}, nil

	case appErrors.Is(txErr, repositories.ErrQuotaExceeded):
		s.emit(ctx, audit.EventQuotaRejected, actor.ID, resourceID, dto.ReasonQuotaExceeded, map[string]any{
			"resource_kind": kind, "limit": outcome.Limit, "current": outcome.Current, "mode": mode,
		})
		return &dto.ReserveResult{
			OK:      false,
			Reason:  dto.ReasonQuotaExceeded,
			Limit:   outcome.Limit,
			Current: outcome.Current,
			Mode:    string(mode),
		}, nil

	case appErrors.Is(txErr, repositories.ErrInsufficientCredits):
		s.emit(ctx, audit.EventQuotaRejected, actor.ID, resourceID, dto.ReasonInsufficientCredits, map[string]any{
			"resource_kind": kind, "mode": mode,
		})
		return &dto.ReserveResult{
			OK:     false,
			Reason: dto.ReasonInsufficientCredits,
			Mode:   string(mode),
		}, nil

	default:
		return nil, txErr
	}
}

func (s *quotaService) Release(ctx context.Context, db *gorm.DB, actorID string, kind models.ResourceKind, resourceID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		return s.ReleaseTx(ctx, tx, actorID, kind, resourceID)
	})
}

// ReleaseTx frees the claim for one resource instance. Releasing a resource
// that holds no reservation is a no-op: release is idempotent per resource
// id, never a bare decrement.
func (s *quotaService) ReleaseTx(ctx context.Context, tx *gorm.DB, actorID string, kind models.ResourceKind, resourceID string) error {
	released, err := s.quotaRepo.Release(tx, actorID, kind, resourceID)
	if err != nil {
		return err
	}
	if released {
		s.emit(ctx, audit.EventQuotaReleased, actorID, resourceID, "released", map[string]any{
			"resource_kind": kind,
		})
	}
	return nil
}

func (s *quotaService) Status(db *gorm.DB, actorID string, kind models.ResourceKind) (*dto.QuotaStatusResponse, error) {
	actor, err := s.userRepo.FindByID(db, actorID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrUserNotFound) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, err
	}
	category := models.CategoryForRole(actor.Role)

	limitKey, err := limitKeyFor(kind, category)
	if err != nil {
		return nil, appErrors.ValidationError(err.Error())
	}

	mode, err := s.privileges.ResolveMode(db, category, modeKeyFor(category), actor.ID)
	if err != nil {
		return nil, err
	}

	limit := math.MaxInt32
	if strategyFor(mode).Gated {
		limit, err = s.privileges.ResolveInt(db, category, limitKey, actor.ID)
		if err != nil {
			return nil, err
		}
	}

	current, err := s.quotaRepo.CurrentCount(db, actorID, kind)
	if err != nil {
		return nil, err
	}

	remaining := limit - current
	if remaining < 0 {
		// Existing resources above a lowered limit stay; only new
		// reservations are blocked.
		remaining = 0
	}
	return &dto.QuotaStatusResponse{
		ResourceKind: string(kind),
		Limit:        limit,
		Current:      current,
		Remaining:    remaining,
		Mode:         string(mode),
	}, nil
}

// ResourceAccepted is the lifecycle hook for the COMMISSION mode: when a
// resource created without gating is accepted, a pending charge is recorded
// for post-hoc billing.
func (s *quotaService) ResourceAccepted(ctx context.Context, db *gorm.DB, kind models.ResourceKind, resourceID string) error {
	reservation, err := s.quotaRepo.FindReservation(db, kind, resourceID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrReservationNotFound) {
			return nil
		}
		return err
	}
	if reservation.Mode != models.MonetizationModeCommission {
		return nil
	}

	return s.subscriptionRepo.CreateCommissionCharge(db, &models.CommissionCharge{
		ActorID:      reservation.ActorID,
		ResourceKind: kind,
		ResourceID:   resourceID,
		Status:       "pending",
	})
}

func (s *quotaService) emit(ctx context.Context, eventType, actorID, entityID, outcome string, details map[string]any) {
	s.sink.Emit(ctx, audit.Event{
		Type:     eventType,
		ActorID:  actorID,
		EntityID: entityID,
		Outcome:  outcome,
		Details:  details,
	})
}
