package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/samuelweirer/psa-putzi-sub000/internal/auth/domain"
	"github.com/samuelweirer/psa-putzi-sub000/internal/auth/dto"
	"github.com/samuelweirer/psa-putzi-sub000/internal/auth/password"
	autherrors "github.com/samuelweirer/psa-putzi-sub000/internal/errors"
	"github.com/samuelweirer/psa-putzi-sub000/internal/ratelimit"
	"github.com/samuelweirer/psa-putzi-sub000/internal/rbac"
)

// persistence calls on the critical path get a bounded deadline so a hung
// store surfaces as a retryable error instead of a stuck request.
const storeTimeout = 5 * time.Second

type UserServiceConfig struct {
	AccessExpirySeconds int
	ResetTokenTTL       time.Duration
	MfaSetupTTL         time.Duration
	RecoveryCodeCount   int
}

// UserService orchestrates the login, token, password and MFA flows over
// the persistence and counter-store collaborators.
type UserService struct {
	repo         domain.UserRepository
	tokenService TokenGenerator
	hasher       *password.Hasher
	policy       password.Policy
	mfa          *MfaService
	lockout      *LockoutPolicy
	loginLimiter *ratelimit.LoginLimiter
	mailer       domain.Mailer
	providers    map[string]domain.OAuthProvider
	logger       *zap.Logger
	cfg          UserServiceConfig
}

func NewUserService(
	repo domain.UserRepository,
	tokenService TokenGenerator,
	hasher *password.Hasher,
	policy password.Policy,
	mfa *MfaService,
	lockout *LockoutPolicy,
	loginLimiter *ratelimit.LoginLimiter,
	mailer domain.Mailer,
	logger *zap.Logger,
	cfg UserServiceConfig,
) *UserService {
	return &UserService{
		repo:         repo,
		tokenService: tokenService,
		hasher:       hasher,
		policy:       policy,
		mfa:          mfa,
		lockout:      lockout,
		loginLimiter: loginLimiter,
		mailer:       mailer,
		providers:    make(map[string]domain.OAuthProvider),
		logger:       logger,
		cfg:          cfg,
	}
}

// RegisterProvider wires an OAuth provider implementation under its name.
func (s *UserService) RegisterProvider(p domain.OAuthProvider) {
	s.providers[p.Name()] = p
}

func (s *UserService) Register(ctx context.Context, input dto.RegisterInput) (*dto.UserOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	email := normalizeEmail(input.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, autherrors.Validation("VALIDATION_ERROR", "a valid email is required")
	}
	if err := s.policy.Validate(input.Password); err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = rbac.RoleCustomer
	}
	if !rbac.IsValidRole(role) {
		return nil, autherrors.Validation("VALIDATION_ERROR", "unknown role")
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, autherrors.Internal("failed to check existing user")
	}
	if existing != nil {
		return nil, autherrors.ErrUserExists
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, autherrors.Internal("failed to hash password")
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: &hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, autherrors.Internal("failed to create user")
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", role))
	return dto.NewUserOutput(user), nil
}

// Login runs the credential → lockout → MFA → issuance state machine. Every
// credential failure has the identical shape regardless of whether the
// account exists.
func (s *UserService) Login(ctx context.Context, input dto.LoginInput) (*dto.LoginOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	email := normalizeEmail(input.Email)

	if err := s.loginLimiter.Check(ctx, email, input.IPAddress); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, autherrors.Internal("failed to look up user")
	}
	if user == nil || !user.HasPassword() || !user.IsActive {
		s.loginLimiter.RecordFailure(ctx, email, input.IPAddress)
		return nil, autherrors.ErrInvalidCredentials
	}

	// Spares the bcrypt work and removes the timing signal a comparison
	// against a locked account would leak.
	if s.lockout.IsLocked(user) {
		return nil, s.lockout.LockedError(user)
	}

	if !s.hasher.Verify(input.Password, *user.PasswordHash) {
		s.loginLimiter.RecordFailure(ctx, email, input.IPAddress)
		return nil, s.lockout.RecordFailure(ctx, user)
	}

	if user.MfaEnabled {
		if input.MfaCode == "" {
			return nil, autherrors.ErrMfaRequired
		}
		if err := s.verifyMfaForLogin(ctx, user, input.MfaCode); err != nil {
			s.loginLimiter.RecordFailure(ctx, email, input.IPAddress)
			return nil, err
		}
	}

	if err := s.lockout.RecordSuccess(ctx, user); err != nil {
		return nil, autherrors.Internal("failed to reset login attempts")
	}
	s.loginLimiter.RecordSuccess(ctx, email, input.IPAddress)

	now := time.Now()
	if err := s.repo.RecordLogin(ctx, user.ID, input.IPAddress, now); err != nil {
		s.logger.Warn("failed to record login metadata", zap.String("user_id", user.ID), zap.Error(err))
	}
	user.LastLoginAt = &now
	user.LastLoginIP = input.IPAddress

	return s.issueTokenPair(ctx, user, input.IPAddress, input.UserAgent)
}

// verifyMfaForLogin tries the submitted value as a TOTP code first and
// falls back to a recovery-code match. A consumed recovery code is removed
// atomically in the store before the login proceeds.
func (s *UserService) verifyMfaForLogin(ctx context.Context, user *domain.User, code string) error {
	if user.MfaSecret != nil && s.mfa.ValidateCodeFormat(code) == nil &&
		s.mfa.VerifyCode(*user.MfaSecret, code) {
		return nil
	}

	if s.mfa.VerifyRecoveryCode(user.MfaRecoveryCodes, code) {
		consumed, err := s.repo.ConsumeRecoveryCode(ctx, user.ID, strings.ToUpper(code))
		if err != nil {
			return autherrors.Internal("failed to consume recovery code")
		}
		if consumed {
			s.logger.Info("recovery code used", zap.String("user_id", user.ID))
			return nil
		}
	}

	return autherrors.ErrInvalidMfaCode
}

// OAuthLogin consumes a normalized provider profile, creating the account
// on first sight. Provider-asserted identity stands in for both factors.
func (s *UserService) OAuthLogin(ctx context.Context, input dto.OAuthLoginInput) (*dto.LoginOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	provider, ok := s.providers[input.Provider]
	if !ok {
		return nil, autherrors.Validation("VALIDATION_ERROR", "unknown provider")
	}

	profile, err := provider.ExchangeCode(ctx, input.Code)
	if err != nil {
		return nil, autherrors.Unauthorized("OAUTH_EXCHANGE_FAILED", "could not verify provider code")
	}

	email := normalizeEmail(profile.Email)
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, autherrors.Internal("failed to look up user")
	}

	if user == nil {
		now := time.Now()
		user = &domain.User{
			ID:              uuid.NewString(),
			Email:           email,
			FirstName:       profile.FirstName,
			LastName:        profile.LastName,
			Role:            rbac.RoleCustomer,
			IsActive:        true,
			OAuthProvider:   profile.Provider,
			OAuthProviderID: profile.ProviderID,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, autherrors.Internal("failed to create user")
		}
	}
	if !user.IsActive {
		return nil, autherrors.ErrUserInactive
	}

	now := time.Now()
	if err := s.repo.RecordLogin(ctx, user.ID, input.IPAddress, now); err != nil {
		s.logger.Warn("failed to record login metadata", zap.String("user_id", user.ID), zap.Error(err))
	}
	user.LastLoginAt = &now

	return s.issueTokenPair(ctx, user, input.IPAddress, input.UserAgent)
}

func (s *UserService) issueTokenPair(ctx context.Context, user *domain.User, ip, userAgent string) (*dto.LoginOutput, error) {
	accessToken, refreshToken, _, err := s.tokenService.Generate(user)
	if err != nil {
		return nil, autherrors.Internal("failed to generate tokens")
	}

	now := time.Now()
	rt := &domain.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: s.tokenService.HashForStorage(refreshToken),
		IPAddress: ip,
		UserAgent: userAgent,
		ExpiresAt: now.Add(s.tokenService.GetRefreshTokenExpiry()),
		CreatedAt: now,
	}
	if err := s.repo.StoreRefreshToken(ctx, rt); err != nil {
		return nil, autherrors.Internal("failed to store refresh token")
	}

	return &dto.LoginOutput{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    s.cfg.AccessExpirySeconds,
		User:         dto.NewUserOutput(user),
	}, nil
}

// Refresh exchanges a valid refresh token for a fresh access token. The
// refresh token itself is not rotated; it stays usable until expiry or
// revocation. Account state is reloaded so role changes take effect.
func (s *UserService) Refresh(ctx context.Context, input dto.RefreshInput) (*dto.RefreshOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	claims, err := s.tokenService.VerifyRefreshToken(input.RefreshToken)
	if err != nil {
		return nil, autherrors.ErrInvalidRefreshToken
	}

	stored, err := s.repo.GetRefreshToken(ctx, s.tokenService.HashForStorage(input.RefreshToken))
	if err != nil {
		return nil, autherrors.Internal("failed to look up refresh token")
	}
	if stored == nil {
		return nil, autherrors.ErrInvalidRefreshToken
	}
	if stored.RevokedAt != nil {
		return nil, autherrors.ErrTokenRevoked
	}
	if !stored.Usable(time.Now()) {
		return nil, autherrors.ErrInvalidRefreshToken
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, autherrors.Internal("failed to look up user")
	}
	if user == nil {
		return nil, autherrors.ErrInvalidRefreshToken
	}
	if !user.IsActive {
		return nil, autherrors.ErrUserInactive
	}

	accessToken, _, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return nil, autherrors.Internal("failed to generate access token")
	}

	return &dto.RefreshOutput{
		AccessToken: accessToken,
		ExpiresIn:   s.cfg.AccessExpirySeconds,
	}, nil
}

// Logout revokes the presented refresh token's stored record. Revoking an
// unknown or already revoked token is not an error.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	stored, err := s.repo.GetRefreshToken(ctx, s.tokenService.HashForStorage(refreshToken))
	if err != nil {
		return autherrors.Internal("failed to look up refresh token")
	}
	if stored == nil || stored.RevokedAt != nil {
		return nil
	}
	if err := s.repo.RevokeRefreshToken(ctx, stored.ID); err != nil {
		return autherrors.Internal("failed to revoke refresh token")
	}
	return nil
}

// ForceLogout revokes every refresh token owned by the user.
func (s *UserService) ForceLogout(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.repo.RevokeAllRefreshTokensByUserID(ctx, userID); err != nil {
		return autherrors.Internal("failed to revoke sessions")
	}
	return nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*dto.UserOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, autherrors.Internal("failed to look up user")
	}
	if user == nil {
		return nil, autherrors.NotFound("USER_NOT_FOUND", "user not found")
	}
	return dto.NewUserOutput(user), nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, input dto.UpdateProfileInput) (*dto.UserOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, autherrors.Internal("failed to look up user")
	}
	if user == nil {
		return nil, autherrors.NotFound("USER_NOT_FOUND", "user not found")
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	if input.Phone != nil {
		user.Phone = *input.Phone
	}
	if input.Language != nil {
		user.Language = *input.Language
	}
	if input.Timezone != nil {
		user.Timezone = *input.Timezone
	}
	user.UpdatedAt = time.Now()

	if err := s.repo.UpdateProfile(ctx, user); err != nil {
		return nil, autherrors.Internal("failed to update profile")
	}
	return dto.NewUserOutput(user), nil
}

// ChangePassword re-proves the current password before applying the new
// one. Existing sessions are left alone.
func (s *UserService) ChangePassword(ctx context.Context, userID string, input dto.ChangePasswordInput) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return autherrors.Internal("failed to look up user")
	}
	if user == nil || !user.HasPassword() {
		return autherrors.ErrInvalidPassword
	}
	if !s.hasher.Verify(input.OldPassword, *user.PasswordHash) {
		return autherrors.ErrInvalidPassword
	}
	if err := s.policy.Validate(input.NewPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return autherrors.Internal("failed to hash password")
	}
	if err := s.repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return autherrors.Internal("failed to update password")
	}
	return nil
}

// RequestPasswordReset answers identically whether or not the email is
// known. The token travels only through the mailer, never the response.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	email = normalizeEmail(email)
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Error("reset request lookup failed", zap.Error(err))
		return nil
	}
	if user == nil || !user.IsActive {
		return nil
	}

	token, err := s.tokenService.RandomToken(32)
	if err != nil {
		s.logger.Error("reset token generation failed", zap.Error(err))
		return nil
	}

	now := time.Now()
	reset := &domain.PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: s.tokenService.HashForStorage(token),
		ExpiresAt: now.Add(s.cfg.ResetTokenTTL),
		CreatedAt: now,
	}
	if err := s.repo.CreatePasswordResetToken(ctx, reset); err != nil {
		s.logger.Error("reset token store failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		s.logger.Error("reset mail delivery failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	return nil
}

// ConfirmPasswordReset applies the new credential, consumes the token,
// invalidates its siblings and revokes all sessions in one transaction, so
// a failure anywhere leaves the pre-operation state intact.
func (s *UserService) ConfirmPasswordReset(ctx context.Context, input dto.PasswordResetConfirmInput) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.policy.Validate(input.NewPassword); err != nil {
		return err
	}

	reset, err := s.repo.GetPasswordResetToken(ctx, s.tokenService.HashForStorage(input.Token))
	if err != nil {
		return autherrors.Internal("failed to look up reset token")
	}
	if reset == nil || reset.UsedAt != nil || time.Now().After(reset.ExpiresAt) {
		return autherrors.ErrInvalidResetToken
	}

	hash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return autherrors.Internal("failed to hash password")
	}

	if err := s.repo.ResetPassword(ctx, reset.ID, reset.UserID, hash); err != nil {
		return autherrors.Internal("failed to reset password")
	}

	s.logger.Info("password reset completed", zap.String("user_id", reset.UserID))
	return nil
}

// SetupMfa issues a candidate secret and a short-lived setup token. Nothing
// is committed to the account until a correct code is verified.
func (s *UserService) SetupMfa(ctx context.Context, userID string) (*dto.MfaSetupOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, autherrors.Internal("failed to look up user")
	}
	if user == nil {
		return nil, autherrors.NotFound("USER_NOT_FOUND", "user not found")
	}
	if user.MfaEnabled {
		return nil, autherrors.Validation("MFA_ALREADY_ENABLED", "MFA is already enabled")
	}

	secret, qr, err := s.mfa.GenerateSecret(user.Email)
	if err != nil {
		return nil, autherrors.Internal("failed to generate MFA secret")
	}

	setupToken, err := s.tokenService.RandomToken(32)
	if err != nil {
		return nil, autherrors.Internal("failed to generate setup token")
	}

	now := time.Now()
	record := &domain.MfaSetupToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: s.tokenService.HashForStorage(setupToken),
		Secret:    secret,
		ExpiresAt: now.Add(s.cfg.MfaSetupTTL),
		CreatedAt: now,
	}
	if err := s.repo.CreateMfaSetupToken(ctx, record); err != nil {
		return nil, autherrors.Internal("failed to store setup token")
	}

	return &dto.MfaSetupOutput{
		Secret:     secret,
		QRCode:     qr,
		SetupToken: setupToken,
	}, nil
}

// VerifyMfa proves the candidate secret with a current code, then commits
// secret and freshly generated recovery codes to the account and marks the
// setup token verified in one transaction.
func (s *UserService) VerifyMfa(ctx context.Context, userID string, input dto.MfaVerifyInput) (*dto.MfaVerifyOutput, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if err := s.mfa.ValidateCodeFormat(input.Code); err != nil {
		return nil, err
	}

	setup, err := s.repo.GetMfaSetupToken(ctx, s.tokenService.HashForStorage(input.SetupToken))
	if err != nil {
		return nil, autherrors.Internal("failed to look up setup token")
	}
	if setup == nil || setup.UserID != userID || setup.VerifiedAt != nil || time.Now().After(setup.ExpiresAt) {
		return nil, autherrors.ErrInvalidSetupToken
	}

	if !s.mfa.VerifyCode(setup.Secret, input.Code) {
		return nil, autherrors.ErrInvalidMfaCode
	}

	codes, err := s.mfa.GenerateRecoveryCodes(s.cfg.RecoveryCodeCount)
	if err != nil {
		return nil, autherrors.Internal("failed to generate recovery codes")
	}

	if err := s.repo.CommitMfa(ctx, userID, setup.Secret, codes, setup.ID); err != nil {
		return nil, autherrors.Internal("failed to enable MFA")
	}

	s.logger.Info("MFA enabled", zap.String("user_id", userID))
	return &dto.MfaVerifyOutput{
		Message:       "MFA enabled",
		RecoveryCodes: codes,
	}, nil
}

// DisableMfa requires re-proof of both the password and a current code
// before clearing the account's MFA state.
func (s *UserService) DisableMfa(ctx context.Context, userID string, input dto.MfaDisableInput) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return autherrors.Internal("failed to look up user")
	}
	if user == nil {
		return autherrors.NotFound("USER_NOT_FOUND", "user not found")
	}
	if !user.MfaEnabled || user.MfaSecret == nil {
		return autherrors.Validation("MFA_NOT_ENABLED", "MFA is not enabled")
	}

	if !user.HasPassword() || !s.hasher.Verify(input.Password, *user.PasswordHash) {
		return autherrors.ErrInvalidPassword
	}
	if err := s.mfa.ValidateCodeFormat(input.Code); err != nil {
		return err
	}
	if !s.mfa.VerifyCode(*user.MfaSecret, input.Code) {
		return autherrors.ErrInvalidMfaCode
	}

	if err := s.repo.DisableMfa(ctx, userID); err != nil {
		return autherrors.Internal("failed to disable MFA")
	}

	s.logger.Info("MFA disabled", zap.String("user_id", userID))
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
