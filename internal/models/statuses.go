package models

type UserStatus string
type UserRole string
type MissionStatus string
type ApplicationStatus string
type SubscriptionStatus string
type VerificationStatus string
type VerificationEntityType string
type MonetizationMode string
type ResourceKind string
type PrivilegeCategory string

const (
	UserStatusPending   UserStatus = "pending"
	UserStatusValidated UserStatus = "validated"
	UserStatusSuspended UserStatus = "suspended"

	UserRoleWorker        UserRole = "worker"
	UserRoleEstablishment UserRole = "establishment"
	UserRoleAdmin         UserRole = "admin"
	UserRoleSuperAdmin    UserRole = "super_admin"

	MissionStatusDraft     MissionStatus = "draft"
	MissionStatusOpen      MissionStatus = "open"
	MissionStatusPublished MissionStatus = "published"
	MissionStatusClosed    MissionStatus = "closed"
	MissionStatusCancelled MissionStatus = "cancelled"

	ApplicationStatusPending   ApplicationStatus = "pending"
	ApplicationStatusAccepted  ApplicationStatus = "accepted"
	ApplicationStatusRejected  ApplicationStatus = "rejected"
	ApplicationStatusWithdrawn ApplicationStatus = "withdrawn"

	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"

	VerificationStatusPending   VerificationStatus = "pending"
	VerificationStatusInReview  VerificationStatus = "in_review"
	VerificationStatusValidated VerificationStatus = "validated"
	VerificationStatusRejected  VerificationStatus = "rejected"

	VerificationEntityWorkerProfile        VerificationEntityType = "worker_profile"
	VerificationEntityEstablishmentProfile VerificationEntityType = "establishment_profile"

	MonetizationModeSubscription MonetizationMode = "SUBSCRIPTION"
	MonetizationModeCredits      MonetizationMode = "CREDITS"
	MonetizationModeCommission   MonetizationMode = "COMMISSION"

	ResourceKindApplication ResourceKind = "application"
	ResourceKindMission     ResourceKind = "mission"

	PrivilegeCategoryWorker        PrivilegeCategory = "WORKER"
	PrivilegeCategoryEstablishment PrivilegeCategory = "ESTABLISHMENT"
	PrivilegeCategoryAdmin         PrivilegeCategory = "ADMIN"
)

// IsTerminal reports whether a verification status can never transition again.
func (s VerificationStatus) IsTerminal() bool {
	return s == VerificationStatusValidated || s == VerificationStatusRejected
}

// IsActive reports whether a mission still counts against its owner's quota.
func (s MissionStatus) IsActive() bool {
	return s == MissionStatusOpen || s == MissionStatusPublished
}

// IsTerminal reports whether a mission has reached a final status.
func (s MissionStatus) IsTerminal() bool {
	return s == MissionStatusClosed || s == MissionStatusCancelled
}

// IsActive reports whether an application still counts against its owner's quota.
func (s ApplicationStatus) IsActive() bool {
	return s == ApplicationStatusPending || s == ApplicationStatusAccepted
}

// CategoryForRole maps an actor role to its privilege category.
func CategoryForRole(role UserRole) PrivilegeCategory {
	switch role {
	case UserRoleEstablishment:
		return PrivilegeCategoryEstablishment
	case UserRoleAdmin, UserRoleSuperAdmin:
		return PrivilegeCategoryAdmin
	default:
		return PrivilegeCategoryWorker
	}
}
