package dto

// CreateManualEventRequest represents an operator-entered occasion
type CreateManualEventRequest struct {
	ClientID  uint    `json:"client_id" validate:"required"`
	Title     string  `json:"title" validate:"required,max=250"`
	EventDate string  `json:"event_date" validate:"required,datetime=2006-01-02"`
	Note      *string `json:"note,omitempty" validate:"omitempty,max=1000"`
}
