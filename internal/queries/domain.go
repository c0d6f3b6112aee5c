package queries

import "time"

// Type distinguishes buy and sell inquiries.
type Type string

const (
	TypeBuy  Type = "BUY"
	TypeSell Type = "SELL"
)

// Status is the lifecycle state of a query.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAssigned  Status = "ASSIGNED"
	StatusCompleted Status = "COMPLETED"
	StatusRejected  Status = "REJECTED"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusAssigned, StatusRejected},
	StatusAssigned: {StatusCompleted, StatusRejected},
}

// CanTransition reports whether a query may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Query is a buy or sell inquiry. Name fields are joined from related rows.
type Query struct {
	ID           int64     `json:"id"`
	Type         Type      `json:"type"`
	UserID       int64     `json:"user_id"`
	UserName     string    `json:"user_name"`
	UserEmail    string    `json:"user_email"`
	ProductID    *int64    `json:"product_id,omitempty"`
	ProductSKU   string    `json:"product_sku,omitempty"`
	ProductName  string    `json:"product_name"`
	Grade        string    `json:"grade,omitempty"`
	QuantityKg   float64   `json:"quantity_kg"`
	TargetPrice  *float64  `json:"target_price,omitempty"`
	Location     string    `json:"location,omitempty"`
	Message      string    `json:"message,omitempty"`
	Status       Status    `json:"status"`
	AssignedTo   *int64    `json:"assigned_to,omitempty"`
	AssignedName string    `json:"assigned_name,omitempty"`
	Response     string    `json:"response,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListFilter narrows query listings.
type ListFilter struct {
	Type       string
	Status     string
	UserID     *int64
	AssignedTo *int64
	Unassigned bool
	Search     string
	Sort       string
	Dir        string
	Page       int
	Limit      int
}

// SubmitInput carries a new inquiry.
type SubmitInput struct {
	Type        string   `json:"type" validate:"required,oneof=BUY SELL"`
	ProductID   *int64   `json:"product_id" validate:"omitempty,gt=0"`
	ProductName string   `json:"product_name" validate:"required_without=ProductID,max=200"`
	Grade       string   `json:"grade" validate:"omitempty,max=40"`
	QuantityKg  float64  `json:"quantity_kg" validate:"gt=0"`
	TargetPrice *float64 `json:"target_price" validate:"omitempty,gt=0"`
	Location    string   `json:"location" validate:"omitempty,max=120"`
	Message     string   `json:"message" validate:"omitempty,max=4000"`
}

// AssignInput hands a query to an employee.
type AssignInput struct {
	EmployeeID int64 `json:"employee_id" validate:"required,gt=0"`
}

// StatusInput moves a query through its lifecycle.
type StatusInput struct {
	Status   string `json:"status" validate:"required,oneof=PENDING ASSIGNED COMPLETED REJECTED"`
	Response string `json:"response" validate:"omitempty,max=4000"`
}

// ProductRef is the catalogue data copied onto a query.
type ProductRef struct {
	Name  string
	Grade string
}
