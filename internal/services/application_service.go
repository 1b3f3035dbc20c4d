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

// ApplicationService owns the application lifecycle. Applying consumes one
// unit of the worker's application quota atomically with the application row;
// withdrawal and rejection release it. Acceptance keeps the unit held and
// triggers the commission hook for actors billed per accepted resource.
type ApplicationService interface {
	Apply(ctx context.Context, db *gorm.DB, workerUserID string, req *dto.CreateApplicationRequest) (*models.Application, error)
	Withdraw(ctx context.Context, db *gorm.DB, workerUserID string, applicationID string) error
	Accept(ctx context.Context, db *gorm.DB, establishmentUserID string, applicationID string) error
	Reject(ctx context.Context, db *gorm.DB, establishmentUserID string, applicationID string) error
	ListByWorker(db *gorm.DB, workerUserID string) ([]models.Application, error)
	ListByMission(db *gorm.DB, establishmentUserID string, missionID string) ([]models.Application, error)
}

type applicationService struct {
	applicationRepo repositories.ApplicationRepository
	missionRepo     repositories.MissionRepository
	profileRepo     repositories.ProfileRepository
	userRepo        repositories.UserRepository
	quota           QuotaService
}

func NewApplicationService(
	applicationRepo repositories.ApplicationRepository,
	missionRepo repositories.MissionRepository,
	profileRepo repositories.ProfileRepository,
	userRepo repositories.UserRepository,
	quota QuotaService,
) ApplicationService {
	return &applicationService{
		applicationRepo: applicationRepo,
		missionRepo:     missionRepo,
		profileRepo:     profileRepo,
		userRepo:        userRepo,
		quota:           quota,
	}
}

func (s *applicationService) Apply(ctx context.Context, db *gorm.DB, workerUserID string, req *dto.CreateApplicationRequest) (*models.Application, error) {
	user, err := s.userRepo.FindByID(db, workerUserID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrUserNotFound) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, err
	}
	if user.Role != models.UserRoleWorker {
		return nil, appErrors.ErrForbidden
	}
	if user.Status != models.UserStatusValidated {
		return nil, appErrors.ErrNotVerified
	}

	profile, err := s.profileRepo.FindWorkerProfileByUserID(db, workerUserID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrProfileNotFound) {
			return nil, appErrors.ErrProfileNotFound
		}
		return nil, err
	}

	mission, err := s.missionRepo.FindByID(db, req.MissionID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrMissionNotFound) {
			return nil, appErrors.ErrMissionNotFound
		}
		return nil, err
	}
	if !mission.Status.IsActive() {
		return nil, appErrors.ErrMissionNotOpen
	}

	application := &models.Application{
		MissionID: mission.ID,
		WorkerID:  profile.ID,
		Message:   req.Message,
		Status:    models.ApplicationStatusPending,
	}

	// Row insert and quota claim commit together; a full quota rolls the
	// insert back, leaving no half-applied state.
	var reserved *dto.ReserveResult
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := s.applicationRepo.Create(tx, application); err != nil {
			return err
		}
		result, err := s.quota.TryReserveTx(ctx, tx, user, models.ResourceKindApplication, application.ID)
		if err != nil {
			return err
		}
		if !result.OK {
			if result.Reason == dto.ReasonInsufficientCredits {
				return appErrors.ErrInsufficientCredits
			}
			return appErrors.QuotaExceeded(result.Limit, result.Current)
		}
		reserved = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.quota.ReserveCommitted(ctx, workerUserID, models.ResourceKindApplication, reserved)

	logger.Info("application created", "application_id", application.ID, "mission_id", mission.ID, "worker_id", profile.ID)
	return application, nil
}

func (s *applicationService) Withdraw(ctx context.Context, db *gorm.DB, workerUserID string, applicationID string) error {
	application, err := s.workerApplication(db, workerUserID, applicationID)
	if err != nil {
		return err
	}
	if application.Status != models.ApplicationStatusPending {
		return appErrors.ErrStateConflict.WithDetails(map[string]any{"status": application.Status})
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := s.applicationRepo.UpdateStatus(tx, applicationID, models.ApplicationStatusWithdrawn); err != nil {
			return err
		}
		return s.quota.ReleaseTx(ctx, tx, workerUserID, models.ResourceKindApplication, applicationID)
	})
}

func (s *applicationService) Accept(ctx context.Context, db *gorm.DB, establishmentUserID string, applicationID string) error {
	application, err := s.missionOwnerApplication(db, establishmentUserID, applicationID)
	if err != nil {
		return err
	}
	if application.Status != models.ApplicationStatusPending {
		return appErrors.ErrStateConflict.WithDetails(map[string]any{"status": application.Status})
	}

	// Accepted applications stay active, so the quota unit stays held. The
	// acceptance hook records a commission charge when the applicant is on
	// per-acceptance billing.
	return db.Transaction(func(tx *gorm.DB) error {
		if err := s.applicationRepo.UpdateStatus(tx, applicationID, models.ApplicationStatusAccepted); err != nil {
			return err
		}
		return s.quota.ResourceAccepted(ctx, tx, models.ResourceKindApplication, applicationID)
	})
}

func (s *applicationService) Reject(ctx context.Context, db *gorm.DB, establishmentUserID string, applicationID string) error {
	application, err := s.missionOwnerApplication(db, establishmentUserID, applicationID)
	if err != nil {
		return err
	}
	if application.Status != models.ApplicationStatusPending {
		return appErrors.ErrStateConflict.WithDetails(map[string]any{"status": application.Status})
	}

	workerUserID, err := s.workerUserID(db, application.WorkerID)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := s.applicationRepo.UpdateStatus(tx, applicationID, models.ApplicationStatusRejected); err != nil {
			return err
		}
		return s.quota.ReleaseTx(ctx, tx, workerUserID, models.ResourceKindApplication, applicationID)
	})
}

func (s *applicationService) ListByWorker(db *gorm.DB, workerUserID string) ([]models.Application, error) {
	profile, err := s.profileRepo.FindWorkerProfileByUserID(db, workerUserID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrProfileNotFound) {
			return nil, appErrors.ErrProfileNotFound
		}
		return nil, err
	}
	return s.applicationRepo.FindByWorker(db, profile.ID)
}

func (s *applicationService) ListByMission(db *gorm.DB, establishmentUserID string, missionID string) ([]models.Application, error) {
	if _, err := s.ownedMission(db, establishmentUserID, missionID); err != nil {
		return nil, err
	}
	return s.applicationRepo.FindByMission(db, missionID)
}

// workerApplication loads an application and checks the calling worker owns it.
func (s *applicationService) workerApplication(db *gorm.DB, workerUserID string, applicationID string) (*models.Application, error) {
	application, err := s.applicationRepo.FindByID(db, applicationID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrApplicationNotFound) {
			return nil, appErrors.ErrApplicationNotFound
		}
		return nil, err
	}
	profile, err := s.profileRepo.FindWorkerProfileByUserID(db, workerUserID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrProfileNotFound) {
			return nil, appErrors.ErrProfileNotFound
		}
		return nil, err
	}
	if application.WorkerID != profile.ID {
		return nil, appErrors.ErrForbidden
	}
	return application, nil
}

// missionOwnerApplication loads an application and checks the caller owns the
// mission it targets.
func (s *applicationService) missionOwnerApplication(db *gorm.DB, establishmentUserID string, applicationID string) (*models.Application, error) {
	application, err := s.applicationRepo.FindByID(db, applicationID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrApplicationNotFound) {
			return nil, appErrors.ErrApplicationNotFound
		}
		return nil, err
	}
	if _, err := s.ownedMission(db, establishmentUserID, application.MissionID); err != nil {
		return nil, err
	}
	return application, nil
}

func (s *applicationService) ownedMission(db *gorm.DB, establishmentUserID string, missionID string) (*models.Mission, error) {
	mission, err := s.missionRepo.FindByID(db, missionID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrMissionNotFound) {
			return nil, appErrors.ErrMissionNotFound
		}
		return nil, err
	}
	profile, err := s.profileRepo.FindEstablishmentProfileByUserID(db, establishmentUserID)
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

// workerUserID resolves the account that owns a worker profile; the quota
// ledger is keyed by account, not profile.
func (s *applicationService) workerUserID(db *gorm.DB, workerProfileID string) (string, error) {
	profile, err := s.profileRepo.FindWorkerProfileByID(db, workerProfileID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrProfileNotFound) {
			return "", appErrors.ErrProfileNotFound
		}
		return "", err
	}
	return profile.UserID, nil
}
