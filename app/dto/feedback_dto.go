package dto

// SubmitFeedbackRequest represents a manager-entered reaction to a greeting
type SubmitFeedbackRequest struct {
	GreetingID uint    `json:"greeting_id" validate:"required"`
	Outcome    string  `json:"outcome,omitempty" validate:"omitempty,oneof=opened replied ignored unknown"`
	Score      *int    `json:"score,omitempty" validate:"omitempty,min=1,max=5"`
	Notes      *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}
