package domain

import (
	"context"
	"time"
)

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) error
	UpdateProfile(ctx context.Context, user *User) error
	UpdatePasswordHash(ctx context.Context, userID, hash string) error

	// IncrementFailedAttempts is an atomic read-modify-write at the
	// database; it returns the post-increment count so two racing failures
	// cannot both observe the pre-threshold value.
	IncrementFailedAttempts(ctx context.Context, userID string) (int, error)
	LockAccount(ctx context.Context, userID string, until time.Time) error
	ResetFailedAttempts(ctx context.Context, userID string) error
	RecordLogin(ctx context.Context, userID, ip string, at time.Time) error

	CommitMfa(ctx context.Context, userID, secret string, recoveryCodes []string, setupTokenID string) error
	DisableMfa(ctx context.Context, userID string) error
	// ConsumeRecoveryCode removes every stored code equal to the candidate
	// in a single statement and reports whether anything was removed.
	ConsumeRecoveryCode(ctx context.Context, userID, code string) (bool, error)

	StoreRefreshToken(ctx context.Context, rt *RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string) error
	RevokeAllRefreshTokensByUserID(ctx context.Context, userID string) error

	CreatePasswordResetToken(ctx context.Context, t *PasswordResetToken) error
	GetPasswordResetToken(ctx context.Context, tokenHash string) (*PasswordResetToken, error)
	// ResetPassword applies the new hash, marks the token used, invalidates
	// the account's other outstanding reset tokens, and revokes all refresh
	// tokens in one transaction.
	ResetPassword(ctx context.Context, tokenID, userID, newHash string) error

	CreateMfaSetupToken(ctx context.Context, t *MfaSetupToken) error
	GetMfaSetupToken(ctx context.Context, tokenHash string) (*MfaSetupToken, error)
}

// Mailer delivers password-reset tokens out of band. Delivery mechanics are
// outside this service; implementations must never surface the token back
// through the API response path.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// OAuthProvider exchanges a provider authorization code for a normalized
// profile. One implementation per provider; the orchestrator only depends
// on this interface.
type OAuthProvider interface {
	Name() string
	ExchangeCode(ctx context.Context, code string) (*NormalizedProfile, error)
}

type NormalizedProfile struct {
	Provider   string
	ProviderID string
	Email      string
	FirstName  string
	LastName   string
}
