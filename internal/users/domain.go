package users

import (
	"time"

	"github.com/agrotrade/agrotrade/internal/shared"
)

// User represents a user account for management.
type User struct {
	ID          int64       `json:"id"`
	Email       string      `json:"email"`
	FullName    string      `json:"full_name"`
	Phone       string      `json:"phone,omitempty"`
	Role        shared.Role `json:"role"`
	CompanyName string      `json:"company_name,omitempty"`
	AvatarURL   string      `json:"avatar_url,omitempty"`
	Provider    string      `json:"provider"`
	IsActive    bool        `json:"is_active"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ListFilter narrows the user listing.
type ListFilter struct {
	Role     string
	IsActive *bool
	Search   string
	Sort     string
	Dir      string
	Page     int
	Limit    int
}

// ProfileInput updates self-service profile fields. Nil fields are left untouched.
type ProfileInput struct {
	FullName    *string `json:"full_name" validate:"omitempty,min=1,max=120"`
	Phone       *string `json:"phone" validate:"omitempty,max=32"`
	CompanyName *string `json:"company_name" validate:"omitempty,max=200"`
	AvatarURL   *string `json:"avatar_url" validate:"omitempty,max=500"`
}

// StaffInput creates an internal employee account.
type StaffInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"required,max=120"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Role     string `json:"role" validate:"required,oneof=admin sales"`
}

// ActiveInput toggles account activation.
type ActiveInput struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// RoleInput changes the role of an account.
type RoleInput struct {
	Role string `json:"role" validate:"required,oneof=admin sales buyer seller"`
}

// Employee is the compact view used when assigning queries.
type Employee struct {
	ID       int64       `json:"id"`
	FullName string      `json:"full_name"`
	Email    string      `json:"email"`
	Role     shared.Role `json:"role"`
}
