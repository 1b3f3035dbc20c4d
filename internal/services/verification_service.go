package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"missionhub_backend/internal/appErrors"
	"missionhub_backend/internal/audit"
	"missionhub_backend/internal/email"
	"missionhub_backend/internal/logger"
	"missionhub_backend/internal/models"
	"missionhub_backend/internal/repositories"
	"missionhub_backend/internal/services/dto"

	"gorm.io/gorm"
)

// Experience required to validate a worker profile without a diploma.
const minExperienceWithoutDiploma = 3

// VerificationService drives the review lifecycle of worker and
// establishment profiles: PENDING -> IN_REVIEW -> {VALIDATED, REJECTED}.
// Every transition is compare-and-swap on the record's version, so two
// reviewers racing on the same case resolve to exactly one winner; the loser
// gets a StateConflict and must refetch.
type VerificationService interface {
	Submit(ctx context.Context, db *gorm.DB, entityType models.VerificationEntityType, entityID string) (*models.VerificationRecord, error)
	Get(db *gorm.DB, id string) (*models.VerificationRecord, error)
	Queue(db *gorm.DB, status models.VerificationStatus, limit int) ([]models.VerificationRecord, error)
	Transition(ctx context.Context, db *gorm.DB, reviewerID string, req *dto.TransitionRequest) (*dto.TransitionResult, error)
}

type verificationService struct {
	verificationRepo repositories.VerificationRepository
	profileRepo      repositories.ProfileRepository
	userRepo         repositories.UserRepository
	notificationRepo repositories.NotificationRepository
	privileges       PrivilegeService
	sink             audit.Sink
	mailer           email.Sender
}

func NewVerificationService(
	verificationRepo repositories.VerificationRepository,
	profileRepo repositories.ProfileRepository,
	userRepo repositories.UserRepository,
	notificationRepo repositories.NotificationRepository,
	privileges PrivilegeService,
	sink audit.Sink,
	mailer email.Sender,
) VerificationService {
	return &verificationService{
		verificationRepo: verificationRepo,
		profileRepo:      profileRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		privileges:       privileges,
		sink:             sink,
		mailer:           mailer,
	}
}

// Submit opens a review case for a profile. If a non-terminal case already
// exists it is returned as-is; a rejected profile gets a fresh record.
func (s *verificationService) Submit(ctx context.Context, db *gorm.DB, entityType models.VerificationEntityType, entityID string) (*models.VerificationRecord, error) {
	if _, err := s.profileForEntity(db, entityType, entityID); err != nil {
		return nil, err
	}

	existing, err := s.verificationRepo.FindOpenByEntity(db, entityType, entityID)
	if err == nil {
		return existing, nil
	}
	if !appErrors.Is(err, repositories.ErrVerificationNotFound) {
		return nil, err
	}

	record := &models.VerificationRecord{
		EntityType: entityType,
		EntityID:   entityID,
		Status:     models.VerificationStatusPending,
		Version:    1,
	}
	if err := s.verificationRepo.Create(db, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *verificationService) Get(db *gorm.DB, id string) (*models.VerificationRecord, error) {
	record, err := s.verificationRepo.FindByID(db, id)
	if err != nil {
		if appErrors.Is(err, repositories.ErrVerificationNotFound) {
			return nil, appErrors.ErrVerificationNotFound
		}
		return nil, err
	}
	return record, nil
}

func (s *verificationService) Queue(db *gorm.DB, status models.VerificationStatus, limit int) ([]models.VerificationRecord, error) {
	return s.verificationRepo.FindByStatus(db, status, limit)
}

func (s *verificationService) Transition(ctx context.Context, db *gorm.DB, reviewerID string, req *dto.TransitionRequest) (*dto.TransitionResult, error) {
	entityType := models.VerificationEntityType(req.EntityType)

	record, err := s.verificationRepo.FindLatestByEntity(db, entityType, req.EntityID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrVerificationNotFound) {
			return nil, appErrors.ErrVerificationNotFound
		}
		return nil, err
	}

	// Terminal records never transition; reconsideration means a new record.
	if record.Status.IsTerminal() {
		return nil, appErrors.ErrStateConflict.WithDetails(map[string]any{
			"status": record.Status, "version": record.Version,
		})
	}

	// Fast-path version check. The CAS update below still guards the race
	// window between this read and the write.
	if record.Version != req.ExpectedVersion {
		return nil, appErrors.ErrStateConflict.WithDetails(map[string]any{
			"expected_version": req.ExpectedVersion, "version": record.Version,
		})
	}

	updates, newStatus, err := s.prepareTransition(db, record, reviewerID, req)
	if err != nil {
		return nil, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := s.verificationRepo.UpdateCAS(tx, record.ID, req.ExpectedVersion, updates); err != nil {
			return err
		}
		if newStatus == models.VerificationStatusValidated {
			return s.applyValidated(tx, record)
		}
		return nil
	})
	if err != nil {
		if appErrors.Is(err, repositories.ErrVersionConflict) {
			return nil, appErrors.ErrStateConflict.WithDetails(map[string]any{
				"expected_version": req.ExpectedVersion,
			})
		}
		return nil, err
	}

	s.sink.Emit(ctx, audit.Event{
		Type:     audit.EventVerificationTransition,
		ActorID:  reviewerID,
		EntityID: record.ID,
		Outcome:  string(newStatus),
		Details: map[string]any{
			"entity_type": record.EntityType,
			"entity_id":   record.EntityID,
			"action":      req.Action,
			"version":     req.ExpectedVersion + 1,
		},
	})

	if newStatus.IsTerminal() {
		// Notification and mail are best-effort collaborators; the
		// transition itself is already committed.
		go s.notifyOutcome(record, newStatus, req.RejectReason)
	}

	return &dto.TransitionResult{
		RecordID: record.ID,
		Status:   string(newStatus),
		Version:  req.ExpectedVersion + 1,
	}, nil
}

// prepareTransition validates the action against the current status and the
// transition preconditions, returning the column updates to apply.
func (s *verificationService) prepareTransition(db *gorm.DB, record *models.VerificationRecord, reviewerID string, req *dto.TransitionRequest) (map[string]interface{}, models.VerificationStatus, error) {
	switch req.Action {
	case dto.ActionTakeCharge:
		if record.Status != models.VerificationStatusPending {
			return nil, "", appErrors.ErrStateConflict.WithDetails(map[string]any{"status": record.Status})
		}
		return map[string]interface{}{
			"status":      models.VerificationStatusInReview,
			"reviewer_id": reviewerID,
		}, models.VerificationStatusInReview, nil

	case dto.ActionValidate:
		if record.Status != models.VerificationStatusInReview {
			return nil, "", appErrors.ErrStateConflict.WithDetails(map[string]any{"status": record.Status})
		}
		if err := s.checkDailyValidationAllowance(db, reviewerID); err != nil {
			return nil, "", err
		}
		if record.EntityType == models.VerificationEntityWorkerProfile &&
			req.WithDiploma != nil && !*req.WithDiploma {
			if err := s.checkNoDiplomaPrecondition(db, record.EntityID); err != nil {
				return nil, "", err
			}
		}
		updates := map[string]interface{}{
			"status":     models.VerificationStatusValidated,
			"notes":      req.Notes,
			"decided_at": time.Now(),
		}
		if req.WithDiploma != nil {
			updates["with_diploma"] = *req.WithDiploma
		}
		return updates, models.VerificationStatusValidated, nil

	case dto.ActionReject:
		if record.Status != models.VerificationStatusInReview {
			return nil, "", appErrors.ErrStateConflict.WithDetails(map[string]any{"status": record.Status})
		}
		if strings.TrimSpace(req.RejectReason) == "" {
			return nil, "", appErrors.ValidationError("reject_reason must not be empty")
		}
		return map[string]interface{}{
			"status":        models.VerificationStatusRejected,
			"reject_reason": req.RejectReason,
			"notes":         req.Notes,
			"decided_at":    time.Now(),
		}, models.VerificationStatusRejected, nil
	}

	return nil, "", appErrors.ValidationError(fmt.Sprintf("unknown transition action %q", req.Action))
}

// checkDailyValidationAllowance caps how many profiles a single reviewer can
// validate per calendar day, resolved through the admin privilege schema so
// an override can tighten or widen it per deployment.
func (s *verificationService) checkDailyValidationAllowance(db *gorm.DB, reviewerID string) error {
	limit, err := s.privileges.ResolveInt(db, models.PrivilegeCategoryAdmin, models.KeyAdminDailyValidationsLimit, reviewerID)
	if err != nil {
		return err
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	count, err := s.verificationRepo.CountDecidedSince(db, reviewerID, models.VerificationStatusValidated, startOfDay)
	if err != nil {
		return err
	}
	if int(count) >= limit {
		return appErrors.QuotaExceeded(limit, int(count))
	}
	return nil
}

// checkNoDiplomaPrecondition enforces validation without a diploma: at least
// three years of experience and no diploma still awaiting review.
func (s *verificationService) checkNoDiplomaPrecondition(db *gorm.DB, profileID string) error {
	profile, err := s.profileRepo.FindWorkerProfileByID(db, profileID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrProfileNotFound) {
			return appErrors.ErrProfileNotFound
		}
		return err
	}

	if profile.ExperienceYears < minExperienceWithoutDiploma {
		return appErrors.ValidationError(fmt.Sprintf(
			"validation without diploma requires at least %d years of experience, profile has %d",
			minExperienceWithoutDiploma, profile.ExperienceYears))
	}

	pending, err := s.profileRepo.CountPendingDiplomas(db, profileID)
	if err != nil {
		return err
	}
	if pending > 0 {
		return appErrors.ValidationError(fmt.Sprintf(
			"%d diploma document(s) still awaiting review", pending))
	}
	return nil
}

// applyValidated propagates a successful validation to the owning account so
// gated capabilities (publishing, applying) unblock.
func (s *verificationService) applyValidated(tx *gorm.DB, record *models.VerificationRecord) error {
	profile, err := s.profileForEntity(tx, record.EntityType, record.EntityID)
	if err != nil {
		return err
	}
	return s.userRepo.UpdateStatus(tx, profile.userID, models.UserStatusValidated)
}

type profileRef struct {
	userID string
}

func (s *verificationService) profileForEntity(db *gorm.DB, entityType models.VerificationEntityType, entityID string) (*profileRef, error) {
	switch entityType {
	case models.VerificationEntityWorkerProfile:
		profile, err := s.profileRepo.FindWorkerProfileByID(db, entityID)
		if err != nil {
			if appErrors.Is(err, repositories.ErrProfileNotFound) {
				return nil, appErrors.ErrProfileNotFound
			}
			return nil, err
		}
		return &profileRef{userID: profile.UserID}, nil
	case models.VerificationEntityEstablishmentProfile:
		profile, err := s.profileRepo.FindEstablishmentProfileByID(db, entityID)
		if err != nil {
			if appErrors.Is(err, repositories.ErrProfileNotFound) {
				return nil, appErrors.ErrProfileNotFound
			}
			return nil, err
		}
		return &profileRef{userID: profile.UserID}, nil
	}
	return nil, appErrors.ValidationError(fmt.Sprintf("unknown entity type %q", entityType))
}

func (s *verificationService) notifyOutcome(record *models.VerificationRecord, status models.VerificationStatus, reason string) {
	// Runs outside the request; uses the connection pool, not the request tx.
	notifType := models.NotificationTypeVerificationValidated
	title := "Your profile has been validated"
	message := "Your profile passed review. All features are now available."
	if status == models.VerificationStatusRejected {
		notifType = models.NotificationTypeVerificationRejected
		title = "Your profile has been rejected"
		message = "Your profile was rejected: " + reason
	}

	db := gormPool
	if db == nil {
		return
	}

	profile, err := s.profileForEntity(db, record.EntityType, record.EntityID)
	if err != nil {
		logger.Error("failed to resolve profile for outcome notification", "record_id", record.ID, "error", err)
		return
	}

	if err := s.notificationRepo.Create(db, &models.Notification{
		UserID:  profile.userID,
		Type:    notifType,
		Title:   title,
		Message: message,
	}); err != nil {
		logger.Error("failed to create outcome notification", "record_id", record.ID, "error", err)
	}

	user, err := s.userRepo.FindByID(db, profile.userID)
	if err != nil {
		return
	}
	if err := s.mailer.Send(user.Email, title, message); err != nil {
		logger.Error("failed to send outcome email", "record_id", record.ID, "error", err)
	}
}

// gormPool is the shared connection pool used for post-commit side effects.
// Set once at startup by the app wiring.
var gormPool *gorm.DB

func SetPool(db *gorm.DB) {
	gormPool = db
}
