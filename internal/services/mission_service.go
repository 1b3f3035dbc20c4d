package services

import (
	"context"

	"missionhub_backend/internal/appErrors"
	"missionhub_backend/internal/logger"
	"missionhub_backend/internal/models"
	"missionhub_backend/internal/repositories"
	"missionhub_backend/internal/services/dto"

	"gorm.io/gorm"
)

// MissionService owns the mission lifecycle. Publishing consumes one unit of
// the owner's mission quota in the same transaction as the status change;
// closing or cancelling releases it the same way. Drafts cost nothing.
type MissionService interface {
	Create(ctx context.Context, db *gorm.DB, userID string, req *dto.CreateMissionRequest) (*models.Mission, error)
	Publish(ctx context.Context, db *gorm.DB, userID string, missionID string) (*models.Mission, error)
	Close(ctx context.Context, db *gorm.DB, userID string, missionID string) error
	Cancel(ctx context.Context, db *gorm.DB, userID string, missionID string) error
	Get(db *gorm.DB, missionID string) (*models.Mission, error)
	ListByOwner(db *gorm.DB, userID string) ([]models.Mission, error)
}

type missionService struct {
	missionRepo repositories.MissionRepository
	profileRepo repositories.ProfileRepository
	userRepo    repositories.UserRepository
	quota       QuotaService
}

func NewMissionService(
	missionRepo repositories.MissionRepository,
	profileRepo repositories.ProfileRepository,
	userRepo repositories.UserRepository,
	quota QuotaService,
) MissionService {
	return &missionService{
		missionRepo: missionRepo,
		profileRepo: profileRepo,
		userRepo:    userRepo,
		quota:       quota,
	}
}

func (s *missionService) Create(ctx context.Context, db *gorm.DB, userID string, req *dto.CreateMissionRequest) (*models.Mission, error) {
	user, profile, err := s.owner(db, userID)
	if err != nil {
		return nil, err
	}

	if req.Publish && user.Status != models.UserStatusValidated {
		return nil, appErrors.ErrNotVerified
	}

	mission := &models.Mission{
		EstablishmentID: profile.ID,
		Title:           req.Title,
		Description:     req.Description,
		City:            req.City,
		HourlyRate:      req.HourlyRate,
		Status:          models.MissionStatusDraft,
	}

	var reserved *dto.ReserveResult
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := s.missionRepo.Create(tx, mission); err != nil {
			return err
		}
		if !req.Publish {
			return nil
		}
		r, err := s.reserveAndPublish(ctx, tx, user, mission.ID)
		if err != nil {
			return err
		}
		reserved = r
		mission.Status = models.MissionStatusPublished
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.quota.ReserveCommitted(ctx, userID, models.ResourceKindMission, reserved)

	logger.Info("mission created", "mission_id", mission.ID, "status", mission.Status, "user_id", userID)
	return mission, nil
}

func (s *missionService) Publish(ctx context.Context, db *gorm.DB, userID string, missionID string) (*models.Mission, error) {
	user, _, err := s.owner(db, userID)
	if err != nil {
		return nil, err
	}
	if user.Status != models.UserStatusValidated {
		return nil, appErrors.ErrNotVerified
	}

	mission, err := s.ownedMission(db, userID, missionID)
	if err != nil {
		return nil, err
	}
	if mission.Status != models.MissionStatusDraft {
		return nil, appErrors.ErrStateConflict.WithDetails(map[string]any{"status": mission.Status})
	}

	var reserved *dto.ReserveResult
	err = db.Transaction(func(tx *gorm.DB) error {
		r, err := s.reserveAndPublish(ctx, tx, user, mission.ID)
		if err != nil {
			return err
		}
		reserved = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.quota.ReserveCommitted(ctx, userID, models.ResourceKindMission, reserved)

	mission.Status = models.MissionStatusPublished
	return mission, nil
}

// reserveAndPublish claims one quota unit for the mission and flips it to
// published, as one atomic unit inside tx. A rejected reservation surfaces as
// an error so the surrounding transaction rolls the mission write back. The
// returned result is for the caller to report to the ledger after commit.
func (s *missionService) reserveAndPublish(ctx context.Context, tx *gorm.DB, user *models.User, missionID string) (*dto.ReserveResult, error) {
	result, err := s.quota.TryReserveTx(ctx, tx, user, models.ResourceKindMission, missionID)
	if err != nil {
		return nil, err
	}
	if !result.OK {
		if result.Reason == dto.ReasonInsufficientCredits {
			return nil, appErrors.ErrInsufficientCredits
		}
		return nil, appErrors.QuotaExceeded(result.Limit, result.Current)
	}
	return result, s.missionRepo.UpdateStatus(tx, missionID, models.MissionStatusPublished)
}

func (s *missionService) Close(ctx context.Context, db *gorm.DB, userID string, missionID string) error {
	return s.finish(ctx, db, userID, missionID, models.MissionStatusClosed)
}

func (s *missionService) Cancel(ctx context.Context, db *gorm.DB, userID string, missionID string) error {
	return s.finish(ctx, db, userID, missionID, models.MissionStatusCancelled)
}

func (s *missionService) finish(ctx context.Context, db *gorm.DB, userID string, missionID string, status models.MissionStatus) error {
	mission, err := s.ownedMission(db, userID, missionID)
	if err != nil {
		return err
	}
	if mission.Status.IsTerminal() {
		return appErrors.ErrStateConflict.WithDetails(map[string]any{"status": mission.Status})
	}
	wasActive := mission.Status.IsActive()

	return db.Transaction(func(tx *gorm.DB) error {
		if err := s.missionRepo.UpdateStatus(tx, missionID, status); err != nil {
			return err
		}
		if wasActive {
			return s.quota.ReleaseTx(ctx, tx, userID, models.ResourceKindMission, missionID)
		}
		return nil
	})
}

func (s *missionService) Get(db *gorm.DB, missionID string) (*models.Mission, error) {
	mission, err := s.missionRepo.FindByID(db, missionID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrMissionNotFound) {
			return nil, appErrors.ErrMissionNotFound
		}
		return nil, err
	}
	return mission, nil
}

func (s *missionService) ListByOwner(db *gorm.DB, userID string) ([]models.Mission, error) {
	profile, err := s.profileRepo.FindEstablishmentProfileByUserID(db, userID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrProfileNotFound) {
			return nil, appErrors.ErrProfileNotFound
		}
		return nil, err
	}
	return s.missionRepo.FindByEstablishment(db, profile.ID)
}

func (s *missionService) owner(db *gorm.DB, userID string) (*models.User, *models.EstablishmentProfile, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrUserNotFound) {
			return nil, nil, appErrors.ErrUserNotFound
		}
		return nil, nil, err
	}
	if user.Role != models.UserRoleEstablishment {
		return nil, nil, appErrors.ErrForbidden
	}
	profile, err := s.profileRepo.FindEstablishmentProfileByUserID(db, userID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrProfileNotFound) {
			return nil, nil, appErrors.ErrProfileNotFound
		}
		return nil, nil, err
	}
	return user, profile, nil
}

// ownedMission loads a mission and checks the caller owns it.
func (s *missionService) ownedMission(db *gorm.DB, userID string, missionID string) (*models.Mission, error) {
	mission, err := s.missionRepo.FindByID(db, missionID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrMissionNotFound) {
			return nil, appErrors.ErrMissionNotFound
		}
		return nil, err
	}
	profile, err := s.profileRepo.FindEstablishmentProfileByUserID(db, userID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrProfileNotFound) {
			return nil, appErrors.ErrProfileNotFound
		}
		return nil, err
	}
	if mission.EstablishmentID != profile.ID {
		return nil, appErrors.ErrForbidden
	}
	return mission, nil
}
