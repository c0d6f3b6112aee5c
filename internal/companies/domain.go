package companies

import "time"

// Details is the company profile attached 1:1 to a user.
type Details struct {
	UserID             int64     `json:"user_id"`
	CompanyName        string    `json:"company_name"`
	RegistrationNumber string    `json:"registration_number,omitempty"`
	TaxNumber          string    `json:"tax_number,omitempty"`
	AddressLine1       string    `json:"address_line1,omitempty"`
	AddressLine2       string    `json:"address_line2,omitempty"`
	City               string    `json:"city,omitempty"`
	State              string    `json:"state,omitempty"`
	PostalCode         string    `json:"postal_code,omitempty"`
	Country            string    `json:"country,omitempty"`
	Website            string    `json:"website,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Input carries the editable company fields.
type Input struct {
	CompanyName        string `json:"company_name" validate:"required,max=200"`
	RegistrationNumber string `json:"registration_number" validate:"omitempty,max=64"`
	TaxNumber          string `json:"tax_number" validate:"omitempty,max=64"`
	AddressLine1       string `json:"address_line1" validate:"omitempty,max=200"`
	AddressLine2       string `json:"address_line2" validate:"omitempty,max=200"`
	City               string `json:"city" validate:"omitempty,max=100"`
	State              string `json:"state" validate:"omitempty,max=100"`
	PostalCode         string `json:"postal_code" validate:"omitempty,max=20"`
	Country            string `json:"country" validate:"omitempty,max=100"`
	Website            string `json:"website" validate:"omitempty,url,max=255"`
}
