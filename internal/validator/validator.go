package validator

import (
	"log"

	"missionhub_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

// Validator wraps go-playground/validator with the domain rules registered.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()
	registerCustomRules(v)
	return &Validator{validate: v}
}

// Struct validates a struct against its tags.
func (v *Validator) Struct(s interface{}) error {
	return v.validate.Struct(s)
}

func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// A rule that cannot be registered is a startup-time defect.
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-user-role", validateUserRole)
	mustRegister("is-resource-kind", validateResourceKind)
	mustRegister("is-privilege-category", validatePrivilegeCategory)
	mustRegister("is-monetization-mode", validateMonetizationMode)
	mustRegister("is-verification-entity", validateVerificationEntity)
}

func validateUserRole(fl validator.FieldLevel) bool {
	switch models.UserRole(fl.Field().String()) {
	case models.UserRoleWorker, models.UserRoleEstablishment, models.UserRoleAdmin, models.UserRoleSuperAdmin:
		return true
	}
	return false
}

func validateResourceKind(fl validator.FieldLevel) bool {
	switch models.ResourceKind(fl.Field().String()) {
	case models.ResourceKindApplication, models.ResourceKindMission:
		return true
	}
	return false
}

func validatePrivilegeCategory(fl validator.FieldLevel) bool {
	switch models.PrivilegeCategory(fl.Field().String()) {
	case models.PrivilegeCategoryWorker, models.PrivilegeCategoryEstablishment, models.PrivilegeCategoryAdmin:
		return true
	}
	return false
}

func validateMonetizationMode(fl validator.FieldLevel) bool {
	switch models.MonetizationMode(fl.Field().String()) {
	case models.MonetizationModeSubscription, models.MonetizationModeCredits, models.MonetizationModeCommission:
		return true
	}
	return false
}

func validateVerificationEntity(fl validator.FieldLevel) bool {
	switch models.VerificationEntityType(fl.Field().String()) {
	case models.VerificationEntityWorkerProfile, models.VerificationEntityEstablishmentProfile:
		return true
	}
	return false
}
