package dto

type CreatePlanRequest struct {
	Code             string         `json:"code" binding:"required"`
	Name             string         `json:"name" binding:"required"`
	TargetRole       string         `json:"target_role" binding:"required" validate:"is-user-role"`
	Price            float64        `json:"price"`
	Currency         string         `json:"currency"`
	Duration         string         `json:"duration" binding:"required"`
	Limits           map[string]any `json:"limits"`
	MonetizationMode string         `json:"monetization_mode" validate:"omitempty,is-monetization-mode"`
	IsActive         bool           `json:"is_active"`
}

type UpdatePlanRequest struct {
	Name             *string        `json:"name,omitempty"`
	Price            *float64       `json:"price,omitempty"`
	Currency         *string        `json:"currency,omitempty"`
	Duration         *string        `json:"duration,omitempty"`
	Limits           map[string]any `json:"limits,omitempty"`
	MonetizationMode *string        `json:"monetization_mode,omitempty"`
	IsActive         *bool          `json:"is_active,omitempty"`
}

type SubscribeRequest struct {
	PlanID string `json:"plan_id" binding:"required"`
}

type CreateMissionRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	City        string  `json:"city"`
	HourlyRate  float64 `json:"hourly_rate"`
	Publish     bool    `json:"publish"`
}

type CreateApplicationRequest struct {
	MissionID string `json:"mission_id" binding:"required"`
	Message   string `json:"message"`
}
