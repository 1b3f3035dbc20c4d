package services

import (
	"fmt"

	"missionhub_backend/internal/models"
)

// monetizationStrategy is the dispatch table entry for one monetization
// mode. It owns no state; it only selects which ledger semantics apply.
type monetizationStrategy struct {
	// Gated: reservations are capped by the resolved limit.
	Gated bool
	// DebitsCredits: each successful reservation debits one credit, in the
	// same atomic unit as the reservation.
	DebitsCredits bool
	// ChargesOnAccept: creation is not gated; a commission charge is created
	// when the resource is accepted.
	ChargesOnAccept bool
}

var monetizationStrategies = map[models.MonetizationMode]monetizationStrategy{
	models.MonetizationModeSubscription: {Gated: true},
	models.MonetizationModeCredits:      {Gated: true, DebitsCredits: true},
	models.MonetizationModeCommission:   {ChargesOnAccept: true},
}

func strategyFor(mode models.MonetizationMode) monetizationStrategy {
	if s, ok := monetizationStrategies[mode]; ok {
		return s
	}
	// Unknown modes behave like plain subscription caps.
	return monetizationStrategies[models.MonetizationModeSubscription]
}

// modeKeyFor returns the privilege key holding a category's monetization mode.
func modeKeyFor(category models.PrivilegeCategory) string {
	if category == models.PrivilegeCategoryEstablishment {
		return models.KeyEstabMonetizationMode
	}
	return models.KeyWorkerMonetizationMode
}

// limitKeyFor returns the privilege key capping a resource kind for a
// category. Admins do not consume marketplace quotas.
func limitKeyFor(kind models.ResourceKind, category models.PrivilegeCategory) (string, error) {
	switch kind {
	case models.ResourceKindApplication:
		if category != models.PrivilegeCategoryWorker {
			return "", fmt.Errorf("category %s cannot consume %s quota", category, kind)
		}
		return models.KeyWorkerFreeApplicationsLimit, nil
	case models.ResourceKindMission:
		switch category {
		case models.PrivilegeCategoryWorker:
			return models.KeyWorkerFreeMissionsLimit, nil
		case models.PrivilegeCategoryEstablishment:
			return models.KeyEstabFreeMissionsLimit, nil
		}
		return "", fmt.Errorf("category %s cannot consume %s quota", category, kind)
	}
	return "", fmt.Errorf("unknown resource kind %q", kind)
}
