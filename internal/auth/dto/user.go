package dto

import (
	"time"

	"github.com/samuelweirer/psa-putzi-sub000/internal/auth/domain"
)

// UserOutput is the sanitized profile shape. Credential and MFA secret
// material never appear here.
type UserOutput struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       string     `json:"phone,omitempty"`
	Language    string     `json:"language,omitempty"`
	Timezone    string     `json:"timezone,omitempty"`
	Role        string     `json:"role"`
	MfaEnabled  bool       `json:"mfa_enabled"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func NewUserOutput(u *domain.User) *UserOutput {
	return &UserOutput{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		Language:    u.Language,
		Timezone:    u.Timezone,
		Role:        u.Role,
		MfaEnabled:  u.MfaEnabled,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

type UpdateProfileInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Language  *string `json:"language"`
	Timezone  *string `json:"timezone"`
}
