package appErrors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies an application error class.
type ErrorCode string

// AppError is the application error carried across layers. QuotaExceeded and
// StateConflict instances are expected outcomes the caller branches on, not
// faults; ConfigurationMissing is fatal misconfiguration and must never be
// silently defaulted.
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	Details  interface{} `json:"details,omitempty"`
	Err      error       `json:"-"`
	HTTPCode int         `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches AppErrors by code so sentinel instances survive WithDetails copies.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !stderrors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func New(code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: httpCode,
	}
}

func Wrap(err error, code ErrorCode, message string, httpCode int) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Err:      err,
		HTTPCode: httpCode,
	}
}

// WithDetails returns a copy carrying extra context, leaving the sentinel intact.
func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

func (e *AppError) WithError(err error) *AppError {
	clone := *e
	clone.Err = err
	return &clone
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	type alias struct {
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}
	return json.Marshal(&alias{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// Predefined errors
var (
	// Authentication
	ErrInvalidCredentials = New(CodeInvalidCredentials, "Invalid email or password", http.StatusUnauthorized)
	ErrUnauthorized       = New(CodeUnauthorized, "Authentication required", http.StatusUnauthorized)
	ErrForbidden          = New(CodeForbidden, "Access denied", http.StatusForbidden)
	ErrInvalidToken       = New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)

	// Users
	ErrUserNotFound            = New(CodeUserNotFound, "User not found", http.StatusNotFound)
	ErrEmailAlreadyExists      = New(CodeEmailAlreadyExists, "Email already exists", http.StatusConflict)
	ErrUserSuspended           = New(CodeUserSuspended, "User account suspended", http.StatusForbidden)
	ErrNotVerified             = New(CodeNotVerified, "Account has not passed verification", http.StatusForbidden)
	ErrInvalidUserRole         = New(CodeInvalidUserRole, "Invalid user role", http.StatusBadRequest)
	ErrInsufficientPermissions = New(CodeInsufficientPermissions, "Insufficient permissions", http.StatusForbidden)

	// Profiles
	ErrProfileNotFound = New(CodeProfileNotFound, "Profile not found", http.StatusNotFound)

	// Validation
	ErrValidationFailed = New(CodeValidationFailed, "Validation failed", http.StatusBadRequest)

	// Missions and applications
	ErrMissionNotFound     = New(CodeMissionNotFound, "Mission not found", http.StatusNotFound)
	ErrApplicationNotFound = New(CodeApplicationNotFound, "Application not found", http.StatusNotFound)
	ErrMissionNotOpen      = New(CodeMissionNotOpen, "Mission is not open for applications", http.StatusBadRequest)

	// Plans and subscriptions
	ErrSubscriptionPlanNotFound = New(CodePlanNotFound, "Subscription plan not found", http.StatusNotFound)
	ErrSubscriptionNotFound     = New(CodeSubscriptionNotFound, "Subscription not found", http.StatusNotFound)

	// Quota and privileges
	ErrQuotaExceeded        = New(CodeQuotaExceeded, "Quota exceeded", http.StatusForbidden)
	ErrInsufficientCredits  = New(CodeInsufficientCredits, "Insufficient credits", http.StatusForbidden)
	ErrConfigurationMissing = New(CodeConfigurationMissing, "No value configured for requested privilege key", http.StatusInternalServerError)
	ErrUnknownPrivilegeKey  = New(CodeUnknownPrivilegeKey, "Unknown privilege key", http.StatusBadRequest)

	// Verification workflow
	ErrStateConflict        = New(CodeStateConflict, "Verification record changed since it was read", http.StatusConflict)
	ErrVerificationNotFound = New(CodeVerificationNotFound, "Verification record not found", http.StatusNotFound)
)

// Helpers for errors carrying details

func ValidationError(details interface{}) *AppError {
	return ErrValidationFailed.WithDetails(details)
}

func QuotaExceeded(limit, current int) *AppError {
	return ErrQuotaExceeded.WithDetails(map[string]int{"limit": limit, "current": current})
}

func NotFound(resource string) *AppError {
	return New(CodeUserNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func InternalError(err error) *AppError {
	return Wrap(err, CodeInternalError, "Internal server error", http.StatusInternalServerError)
}

func ConfigurationMissing(category, key string) *AppError {
	return ErrConfigurationMissing.WithDetails(map[string]string{"category": category, "key": key})
}
