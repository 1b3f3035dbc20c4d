package appErrors

// Error codes grouped by domain.
const (
	// Authentication and authorization
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeInvalidToken       ErrorCode = "INVALID_TOKEN"

	// Validation
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeInvalidUserRole  ErrorCode = "INVALID_USER_ROLE"

	// Resources
	CodeUserNotFound         ErrorCode = "USER_NOT_FOUND"
	CodeProfileNotFound      ErrorCode = "PROFILE_NOT_FOUND"
	CodeMissionNotFound      ErrorCode = "MISSION_NOT_FOUND"
	CodeApplicationNotFound  ErrorCode = "APPLICATION_NOT_FOUND"
	CodePlanNotFound         ErrorCode = "PLAN_NOT_FOUND"
	CodeSubscriptionNotFound ErrorCode = "SUBSCRIPTION_NOT_FOUND"
	CodeVerificationNotFound ErrorCode = "VERIFICATION_NOT_FOUND"

	// Quota and privileges
	CodeQuotaExceeded        ErrorCode = "QUOTA_EXCEEDED"
	CodeInsufficientCredits  ErrorCode = "INSUFFICIENT_CREDITS"
	CodeConfigurationMissing ErrorCode = "CONFIGURATION_MISSING"
	CodeUnknownPrivilegeKey  ErrorCode = "UNKNOWN_PRIVILEGE_KEY"

	// Verification workflow
	CodeStateConflict ErrorCode = "STATE_CONFLICT"

	// Business logic
	CodeEmailAlreadyExists      ErrorCode = "EMAIL_ALREADY_EXISTS"
	CodeNotVerified             ErrorCode = "NOT_VERIFIED"
	CodeUserSuspended           ErrorCode = "USER_SUSPENDED"
	CodeInsufficientPermissions ErrorCode = "INSUFFICIENT_PERMISSIONS"
	CodeMissionNotOpen          ErrorCode = "MISSION_NOT_OPEN"

	// System errors
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError ErrorCode = "DATABASE_ERROR"
)
