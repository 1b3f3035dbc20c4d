package dto

type TransitionAction string

const (
	ActionTakeCharge TransitionAction = "TAKE_CHARGE"
	ActionValidate   TransitionAction = "VALIDATE"
	ActionReject     TransitionAction = "REJECT"
)

type TransitionRequest struct {
	EntityType      string           `json:"entity_type" binding:"required" validate:"is-verification-entity"`
	EntityID        string           `json:"entity_id" binding:"required"`
	ExpectedVersion int              `json:"expected_version" binding:"required"`
	Action          TransitionAction `json:"action" binding:"required"`
	WithDiploma     *bool            `json:"with_diploma,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	RejectReason    string           `json:"reject_reason,omitempty"`
}

type TransitionResult struct {
	RecordID string `json:"record_id"`
	Status   string `json:"status"`
	Version  int    `json:"version"`
}

type VerificationRecordResponse struct {
	ID           string  `json:"id"`
	EntityType   string  `json:"entity_type"`
	EntityID     string  `json:"entity_id"`
	Status       string  `json:"status"`
	Version      int     `json:"version"`
	ReviewerID   *string `json:"reviewer_id,omitempty"`
	Notes        string  `json:"notes,omitempty"`
	RejectReason string  `json:"reject_reason,omitempty"`
	CreatedAt    string  `json:"created_at"`
}
