package dto

import "missionhub_backend/internal/models"

type ResolveRequest struct {
	Category string `json:"category" binding:"required" validate:"is-privilege-category"`
	Key      string `json:"key" binding:"required"`
	ActorID  string `json:"actor_id"`
}

type ResolveResponse struct {
	Category string `json:"category"`
	Key      string `json:"key"`
	Kind     string `json:"kind"`
	Value    string `json:"value"`
	Source   string `json:"source"` // override | plan | default
}

type SetOverrideRequest struct {
	Category string `json:"category" binding:"required" validate:"is-privilege-category"`
	Key      string `json:"key" binding:"required"`
	Value    string `json:"value" binding:"required"`
}

type OverrideResponse struct {
	Category  string `json:"category"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedBy string `json:"updated_by,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

// ResolvedValue pairs a typed value with where the resolver found it.
type ResolvedValue struct {
	Value  models.PrivilegeValue
	Source string
}

const (
	SourceOverride = "override"
	SourcePlan     = "plan"
	SourceDefault  = "default"
)
