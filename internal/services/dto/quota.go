package dto

type ReserveRequest struct {
	ResourceKind string `json:"resource_kind" binding:"required" validate:"is-resource-kind"`
}

// ReserveResult is the ordinary return value of a reservation attempt.
// A quota rejection is not an error: the caller branches on OK.
type ReserveResult struct {
	OK         bool   `json:"ok"`
	Reason     string `json:"reason,omitempty"` // "QUOTA_EXCEEDED" | "INSUFFICIENT_CREDITS"
	Limit      int    `json:"limit,omitempty"`
	Current    int    `json:"current,omitempty"`
	ResourceID string `json:"resource_id,omitempty"`
	Mode       string `json:"mode,omitempty"`
}

type ReleaseRequest struct {
	ResourceKind string `json:"resource_kind" binding:"required" validate:"is-resource-kind"`
	ResourceID   string `json:"resource_id" binding:"required"`
}

type QuotaStatusResponse struct {
	ResourceKind string `json:"resource_kind"`
	Limit        int    `json:"limit"`
	Current      int    `json:"current"`
	Remaining    int    `json:"remaining"`
	Mode         string `json:"mode"`
}

const (
	ReasonQuotaExceeded       = "QUOTA_EXCEEDED"
	ReasonInsufficientCredits = "INSUFFICIENT_CREDITS"
)
