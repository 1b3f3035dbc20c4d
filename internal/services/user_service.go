package services

import (
	"context"
	"strings"

	"missionhub_backend/internal/appErrors"
	"missionhub_backend/internal/auth"
	"missionhub_backend/internal/logger"
	"missionhub_backend/internal/models"
	"missionhub_backend/internal/repositories"
	"missionhub_backend/internal/services/dto"

	"gorm.io/gorm"
)

// UserService handles registration and login. New accounts start in the
// pending status and open a verification case immediately; quota-gated
// actions stay blocked until a reviewer validates the profile.
type UserService interface {
	Register(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(db *gorm.DB, req *dto.LoginRequest) (*dto.AuthResponse, error)
	Get(db *gorm.DB, userID string) (*models.User, error)
}

type userService struct {
	userRepo     repositories.UserRepository
	profileRepo  repositories.ProfileRepository
	verification VerificationService
}

func NewUserService(
	userRepo repositories.UserRepository,
	profileRepo repositories.ProfileRepository,
	verification VerificationService,
) UserService {
	return &userService{
		userRepo:     userRepo,
		profileRepo:  profileRepo,
		verification: verification,
	}
}

func (s *userService) Register(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	role := models.UserRole(req.Role)
	if role != models.UserRoleWorker && role != models.UserRoleEstablishment {
		return nil, appErrors.ValidationError("role must be worker or establishment")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.userRepo.FindByEmail(db, email); err == nil {
		return nil, appErrors.ErrEmailAlreadyExists
	} else if !appErrors.Is(err, repositories.ErrUserNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, appErrors.InternalError(err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       models.UserStatusPending,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.Create(tx, user); err != nil {
			return err
		}

		switch role {
		case models.UserRoleWorker:
			profile := &models.WorkerProfile{
				UserID:          user.ID,
				Name:            strings.TrimSpace(req.FirstName + " " + req.LastName),
				ExperienceYears: req.ExperienceYears,
				City:            req.City,
				Skills:          req.Skills,
				Languages:       req.Languages,
			}
			if err := s.profileRepo.CreateWorkerProfile(tx, profile); err != nil {
				return err
			}
			_, err := s.verification.Submit(ctx, tx, models.VerificationEntityWorkerProfile, profile.ID)
			return err

		case models.UserRoleEstablishment:
			profile := &models.EstablishmentProfile{
				UserID:      user.ID,
				CompanyName: req.CompanyName,
				City:        req.City,
			}
			if err := s.profileRepo.CreateEstablishmentProfile(tx, profile); err != nil {
				return err
			}
			_, err := s.verification.Submit(ctx, tx, models.VerificationEntityEstablishmentProfile, profile.ID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	token, err := auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, appErrors.InternalError(err)
	}

	logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return &dto.AuthResponse{Token: token, User: toUserResponse(user)}, nil
}

func (s *userService) Login(db *gorm.DB, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.FindByEmail(db, email)
	if err != nil {
		if appErrors.Is(err, repositories.ErrUserNotFound) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(req.Password, user.PasswordHash) {
		return nil, appErrors.ErrInvalidCredentials
	}
	if user.Status == models.UserStatusSuspended {
		return nil, appErrors.ErrUserSuspended
	}

	token, err := auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, appErrors.InternalError(err)
	}

	return &dto.AuthResponse{Token: token, User: toUserResponse(user)}, nil
}

func (s *userService) Get(db *gorm.DB, userID string) (*models.User, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		if appErrors.Is(err, repositories.ErrUserNotFound) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func toUserResponse(user *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:     user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
		Status: string(user.Status),
	}
}
