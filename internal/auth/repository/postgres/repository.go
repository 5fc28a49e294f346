package postgres

//go:generate mockgen -destination=../../../mocks/mock_user_repository.go -package=mocks github.com/samuelweirer/psa-putzi-sub000/internal/auth/domain UserRepository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/samuelweirer/psa-putzi-sub000/internal/auth/domain"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies
// it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PostgresRepository struct {
	db DB
}

func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, email, password_hash, first_name, last_name, phone, language, timezone,
		role, is_active, mfa_enabled, mfa_secret, mfa_recovery_codes,
		failed_attempts, locked_until, last_login_at, last_login_ip,
		oauth_provider, oauth_provider_id, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.Phone, &user.Language, &user.Timezone,
		&user.Role, &user.IsActive, &user.MfaEnabled, &user.MfaSecret, &user.MfaRecoveryCodes,
		&user.FailedAttempts, &user.LockedUntil, &user.LastLoginAt, &user.LastLoginIP,
		&user.OAuthProvider, &user.OAuthProviderID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1;`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1;`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, phone, language, timezone,
			role, is_active, oauth_provider, oauth_provider_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		user.Phone, user.Language, user.Timezone, user.Role, user.IsActive,
		user.OAuthProvider, user.OAuthProviderID, user.CreatedAt, user.UpdatedAt)
	return err
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET first_name = $2, last_name = $3, phone = $4, language = $5, timezone = $6, updated_at = $7
		WHERE id = $1
	`, user.ID, user.FirstName, user.LastName, user.Phone, user.Language, user.Timezone, user.UpdatedAt)
	return err
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1
	`, userID, hash)
	return err
}

// IncrementFailedAttempts performs the increment in the database and
// returns the new count, so concurrent failures serialize on the row
// instead of racing through a read-then-write in application code.
func (r *PostgresRepository) IncrementFailedAttempts(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		UPDATE users SET failed_attempts = failed_attempts + 1, updated_at = now()
		WHERE id = $1
		RETURNING failed_attempts
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to increment failed attempts: %w", err)
	}
	return count, nil
}

func (r *PostgresRepository) LockAccount(ctx context.Context, userID string, until time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET locked_until = $2, updated_at = now() WHERE id = $1
	`, userID, until)
	return err
}

func (r *PostgresRepository) ResetFailedAttempts(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET failed_attempts = 0, locked_until = NULL, updated_at = now() WHERE id = $1
	`, userID)
	return err
}

func (r *PostgresRepository) RecordLogin(ctx context.Context, userID, ip string, at time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET last_login_at = $2, last_login_ip = $3, updated_at = now() WHERE id = $1
	`, userID, at, ip)
	return err
}

// CommitMfa enables MFA on the account and marks the setup token verified
// in one transaction; a half-committed enrollment is never visible.
func (r *PostgresRepository) CommitMfa(ctx context.Context, userID, secret string, recoveryCodes []string, setupTokenID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE users SET mfa_enabled = TRUE, mfa_secret = $2, mfa_recovery_codes = $3, updated_at = now()
		WHERE id = $1
	`, userID, secret, recoveryCodes); err != nil {
		return fmt.Errorf("failed to enable MFA: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE mfa_setup_tokens SET verified_at = now() WHERE id = $1 AND verified_at IS NULL
	`, setupTokenID)
	if err != nil {
		return fmt.Errorf("failed to mark setup token verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New("setup token already verified")
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) DisableMfa(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET mfa_enabled = FALSE, mfa_secret = NULL, mfa_recovery_codes = NULL, updated_at = now()
		WHERE id = $1
	`, userID)
	return err
}

// ConsumeRecoveryCode removes every stored copy of the code in a single
// statement; the WHERE guard makes the removal and the membership check one
// atomic operation, so a code can only ever be consumed once.
func (r *PostgresRepository) ConsumeRecoveryCode(ctx context.Context, userID, code string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET mfa_recovery_codes = array_remove(mfa_recovery_codes, $2), updated_at = now()
		WHERE id = $1 AND $2 = ANY(mfa_recovery_codes)
	`, userID, code)
	if err != nil {
		return false, fmt.Errorf("failed to consume recovery code: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) StoreRefreshToken(ctx context.Context, rt *domain.RefreshToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, ip_address, user_agent, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rt.ID, rt.UserID, rt.TokenHash, rt.IPAddress, rt.UserAgent, rt.ExpiresAt, rt.CreatedAt)
	return err
}

func (r *PostgresRepository) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	var rt domain.RefreshToken
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, token_hash, ip_address, user_agent, expires_at, created_at, revoked_at
		FROM refresh_tokens WHERE token_hash = $1 LIMIT 1;
	`, tokenHash).Scan(&rt.ID, &rt.UserID, &rt.TokenHash, &rt.IPAddress, &rt.UserAgent,
		&rt.ExpiresAt, &rt.CreatedAt, &rt.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return &rt, nil
}

func (r *PostgresRepository) RevokeRefreshToken(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL
	`, id)
	return err
}

func (r *PostgresRepository) RevokeAllRefreshTokensByUserID(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL
	`, userID)
	return err
}

func (r *PostgresRepository) CreatePasswordResetToken(ctx context.Context, t *domain.PasswordResetToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt)
	return err
}

func (r *PostgresRepository) GetPasswordResetToken(ctx context.Context, tokenHash string) (*domain.PasswordResetToken, error) {
	var t domain.PasswordResetToken
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at, used_at
		FROM password_reset_tokens WHERE token_hash = $1 LIMIT 1;
	`, tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt, &t.UsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}
	return &t, nil
}

// ResetPassword is the whole reset-confirm mutation in one transaction:
// new hash, token consumed, sibling tokens invalidated, every session
// revoked. The used_at guard keeps the token single-use even if two
// confirms race on the same token.
func (r *PostgresRepository) ResetPassword(ctx context.Context, tokenID, userID, newHash string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE password_reset_tokens SET used_at = now() WHERE id = $1 AND used_at IS NULL
	`, tokenID)
	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New("reset token already used")
	}

	if _, err := tx.Exec(ctx, `
		UPDATE password_reset_tokens SET used_at = now() WHERE user_id = $1 AND used_at IS NULL
	`, userID); err != nil {
		return fmt.Errorf("failed to invalidate outstanding reset tokens: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE users SET password_hash = $2, failed_attempts = 0, locked_until = NULL, updated_at = now()
		WHERE id = $1
	`, userID, newHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL
	`, userID); err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) CreateMfaSetupToken(ctx context.Context, t *domain.MfaSetupToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO mfa_setup_tokens (id, user_id, token_hash, secret, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.UserID, t.TokenHash, t.Secret, t.ExpiresAt, t.CreatedAt)
	return err
}

func (r *PostgresRepository) GetMfaSetupToken(ctx context.Context, tokenHash string) (*domain.MfaSetupToken, error) {
	var t domain.MfaSetupToken
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, token_hash, secret, expires_at, created_at, verified_at
		FROM mfa_setup_tokens WHERE token_hash = $1 LIMIT 1;
	`, tokenHash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.Secret, &t.ExpiresAt, &t.CreatedAt, &t.VerifiedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get setup token: %w", err)
	}
	return &t, nil
}
