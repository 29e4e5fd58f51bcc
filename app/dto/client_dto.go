package dto

// CreateClientRequest represents a request to create one client
type CreateClientRequest struct {
	FirstName        string  `json:"first_name" validate:"required,max=100"`
	MiddleName       *string `json:"middle_name,omitempty" validate:"omitempty,max=100"`
	LastName         string  `json:"last_name" validate:"required,max=100"`
	CompanyName      *string `json:"company_name,omitempty" validate:"omitempty,max=200"`
	Position         *string `json:"position,omitempty" validate:"omitempty,max=200"`
	Profession       *string `json:"profession,omitempty" validate:"omitempty,max=80"`
	Segment          string  `json:"segment,omitempty" validate:"omitempty,oneof=standard new loyal vip"`
	Email            *string `json:"email,omitempty" validate:"omitempty,email,max=320"`
	Phone            *string `json:"phone,omitempty" validate:"omitempty,max=40"`
	PreferredChannel string  `json:"preferred_channel,omitempty" validate:"omitempty,oneof=email sms messenger"`
	BirthDate        *string `json:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	IsDemo           bool    `json:"is_demo,omitempty"`
}

// SeedDemoResponse reports the outcome of seeding the demo dataset
type SeedDemoResponse struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// ImportClientsResponse reports the outcome of an xlsx import
type ImportClientsResponse struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}
