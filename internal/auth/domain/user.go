package domain

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash *string
	FirstName    string
	LastName     string
	Phone        string
	Language     string
	Timezone     string
	Role         string
	IsActive     bool

	MfaEnabled       bool
	MfaSecret        *string
	MfaRecoveryCodes []string

	FailedAttempts int
	LockedUntil    *time.Time

	LastLoginAt *time.Time
	LastLoginIP string

	OAuthProvider   string
	OAuthProviderID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPassword reports whether the account can authenticate with a password
// at all. OAuth-only accounts carry no credential hash.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	IPAddress string
	UserAgent string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

func (rt *RefreshToken) Usable(now time.Time) bool {
	return rt.RevokedAt == nil && now.Before(rt.ExpiresAt)
}

type PasswordResetToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
	UsedAt    *time.Time
}

// MfaSetupToken holds a candidate TOTP secret that is only committed to the
// account once a correct code has been presented against it.
type MfaSetupToken struct {
	ID        string
	UserID    string
	TokenHash string
	Secret    string
	ExpiresAt time.Time
	CreatedAt time.Time
	VerifiedAt *time.Time
}
