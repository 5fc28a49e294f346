package service

import (
	"context"
	"math"
	"time"

	"github.com/samuelweirer/psa-putzi-sub000/internal/auth/domain"
	autherrors "github.com/samuelweirer/psa-putzi-sub000/internal/errors"
)

// LockoutPolicy tracks consecutive credential failures on the account row
// itself. The increment is an atomic read-modify-write in the repository,
// so the attempt that reaches the threshold and the lock decision stay
// consistent even when two failing requests race.
type LockoutPolicy struct {
	repo        domain.UserRepository
	maxAttempts int
	duration    time.Duration
}

func NewLockoutPolicy(repo domain.UserRepository, maxAttempts int, duration time.Duration) *LockoutPolicy {
	return &LockoutPolicy{repo: repo, maxAttempts: maxAttempts, duration: duration}
}

// IsLocked reports whether the account is inside a lock window. It runs
// before any password comparison.
func (p *LockoutPolicy) IsLocked(user *domain.User) bool {
	return user.LockedUntil != nil && time.Now().Before(*user.LockedUntil)
}

// LockedError builds the rejection for a currently locked account.
func (p *LockoutPolicy) LockedError(user *domain.User) error {
	return autherrors.AccountLocked(minutesUntil(*user.LockedUntil))
}

// RecordFailure bumps the failure counter; when the new count reaches the
// threshold it locks the account and returns the lockout error the caller
// should surface instead of the generic credential failure.
func (p *LockoutPolicy) RecordFailure(ctx context.Context, user *domain.User) error {
	count, err := p.repo.IncrementFailedAttempts(ctx, user.ID)
	if err != nil {
		return autherrors.Internal("failed to record login attempt")
	}

	if count >= p.maxAttempts {
		until := time.Now().Add(p.duration)
		if err := p.repo.LockAccount(ctx, user.ID, until); err != nil {
			return autherrors.Internal("failed to lock account")
		}
		return autherrors.AccountLocked(minutesUntil(until))
	}

	return autherrors.ErrInvalidCredentials
}

// RecordSuccess resets the failure counter and clears any lock.
func (p *LockoutPolicy) RecordSuccess(ctx context.Context, user *domain.User) error {
	return p.repo.ResetFailedAttempts(ctx, user.ID)
}

func minutesUntil(t time.Time) int {
	mins := int(math.Ceil(time.Until(t).Minutes()))
	if mins < 1 {
		mins = 1
	}
	return mins
}
