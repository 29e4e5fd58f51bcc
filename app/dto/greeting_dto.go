package dto

// ReviewGreetingRequest represents an approve or reject action on a greeting
type ReviewGreetingRequest struct {
	GreetingID uint    `json:"-"`
	ReviewedBy string  `json:"reviewed_by" validate:"required,max=120"`
	Comment    *string `json:"comment,omitempty" validate:"omitempty,max=1000"`
}

// ReviewGreetingResponse reports what happened to the reviewed greeting.
// Status is one of: approved, rejected, sent, skipped, scheduled, ignored,
// error. ScheduledFor is set when the event date is still in the future.
type ReviewGreetingResponse struct {
	Status       string  `json:"status"`
	Reason       string  `json:"reason,omitempty"`
	ScheduledFor *string `json:"scheduled_for,omitempty"`
	DeliveryID   *uint   `json:"delivery_id,omitempty"`
}
