package auth

import (
	"time"

	"github.com/agrotrade/agrotrade/internal/shared"
)

// Provider values recorded on accounts.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// User represents an authenticated user account.
type User struct {
	ID           int64       `json:"id"`
	Email        string      `json:"email"`
	PasswordHash string      `json:"-"`
	FullName     string      `json:"full_name"`
	Phone        string      `json:"phone,omitempty"`
	Role         shared.Role `json:"role"`
	CompanyName  string      `json:"company_name,omitempty"`
	AvatarURL    string      `json:"avatar_url,omitempty"`
	Provider     string      `json:"provider"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// SignUpInput carries self-registration data.
type SignUpInput struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=72"`
	FullName    string `json:"full_name" validate:"required,max=120"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	Role        string `json:"role" validate:"required,oneof=buyer seller"`
	CompanyName string `json:"company_name" validate:"omitempty,max=200"`
}

// SignInInput carries password credentials.
type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ResetRequestInput starts a password reset.
type ResetRequestInput struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordInput completes a password reset.
type ResetPasswordInput struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Identity is what an OAuth provider asserts about the user.
type Identity struct {
	Provider  string
	Email     string
	Name      string
	AvatarURL string
}

// Token is an issued access token with its owner.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        *User     `json:"user"`
}
