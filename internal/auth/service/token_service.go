package service

//go:generate mockgen -destination=../../mocks/mock_token_generator.go -package=mocks github.com/samuelweirer/psa-putzi-sub000/internal/auth/service TokenGenerator

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/samuelweirer/psa-putzi-sub000/internal/auth/domain"
	autherrors "github.com/samuelweirer/psa-putzi-sub000/internal/errors"
	"github.com/samuelweirer/psa-putzi-sub000/internal/rbac"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type TokenGenerator interface {
	Generate(user *domain.User) (string, string, time.Time, error)
	GenerateAccessToken(user *domain.User) (string, time.Time, error)
	VerifyAccessToken(tokenString string) (*JWTCustomClaims, error)
	VerifyRefreshToken(tokenString string) (*JWTCustomClaims, error)
	HashForStorage(token string) string
	RandomToken(length int) (string, error)
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
}

// TokenService signs and verifies the two token families with distinct
// secrets. A refresh token can never validate against the access verifier:
// the secrets differ and the token_type claim is checked on both paths.
type TokenService struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
	Audience           string
}

type JWTCustomClaims struct {
	jwt.RegisteredClaims
	UserID      string   `json:"user_id"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	TokenType   string   `json:"token_type"`
}

func NewTokenService(accessSecret, refreshSecret string, accessExpiry, refreshExpiry time.Duration, issuer, audience string) *TokenService {
	return &TokenService{
		AccessTokenSecret:  accessSecret,
		RefreshTokenSecret: refreshSecret,
		AccessTokenExpiry:  accessExpiry,
		RefreshTokenExpiry: refreshExpiry,
		Issuer:             issuer,
		Audience:           audience,
	}
}

// Generate issues an access+refresh pair for the user. The refresh token
// carries a fresh jti so two issuances for the same subject at the same
// instant never produce identical tokens or storage digests.
func (ts *TokenService) Generate(user *domain.User) (string, string, time.Time, error) {
	now := time.Now()
	accessExpiresAt := now.Add(ts.AccessTokenExpiry)

	accessToken, err := ts.signAccess(user, now, accessExpiresAt)
	if err != nil {
		return "", "", time.Time{}, err
	}

	refreshClaims := JWTCustomClaims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		TokenType: tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.Issuer,
			Audience:  jwt.ClaimStrings{ts.Audience},
			Subject:   user.ID,
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.RefreshTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256,
		refreshClaims).SignedString([]byte(ts.RefreshTokenSecret))
	if err != nil {
		return "", "", time.Time{}, err
	}

	return accessToken, refreshToken, accessExpiresAt, nil
}

// GenerateAccessToken issues an access token alone, used by the refresh
// flow which does not rotate the refresh token.
func (ts *TokenService) GenerateAccessToken(user *domain.User) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ts.AccessTokenExpiry)
	token, err := ts.signAccess(user, now, expiresAt)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (ts *TokenService) signAccess(user *domain.User, now, expiresAt time.Time) (string, error) {
	accessClaims := JWTCustomClaims{
		UserID:      user.ID,
		Email:       user.Email,
		Role:        user.Role,
		Permissions: rbac.Permissions(user.Role),
		TokenType:   tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.Issuer,
			Audience:  jwt.ClaimStrings{ts.Audience},
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(ts.AccessTokenSecret))
}

func (ts *TokenService) VerifyAccessToken(tokenString string) (*JWTCustomClaims, error) {
	return ts.verify(tokenString, ts.AccessTokenSecret, tokenTypeAccess)
}

func (ts *TokenService) VerifyRefreshToken(tokenString string) (*JWTCustomClaims, error) {
	return ts.verify(tokenString, ts.RefreshTokenSecret, tokenTypeRefresh)
}

func (ts *TokenService) verify(tokenString, secret, wantType string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(ts.Issuer),
		jwt.WithAudience(ts.Audience),
	)

	if err != nil {
		// Expiry is the one failure clients can act on; everything else
		// collapses into a single invalid-token shape.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, autherrors.ErrTokenExpired
		}
		return nil, autherrors.ErrTokenInvalid
	}

	if !token.Valid || claims.TokenType != wantType {
		return nil, autherrors.ErrTokenInvalid
	}

	return claims, nil
}

// HashForStorage is the deterministic digest of token material used to look
// tokens up at rest. The raw token is never persisted.
func (ts *TokenService) HashForStorage(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// RandomToken returns length bytes of cryptographically random material as
// a url-safe string, used for reset and MFA setup tokens.
func (ts *TokenService) RandomToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (ts *TokenService) GetAccessTokenExpiry() time.Duration {
	return ts.AccessTokenExpiry
}

func (ts *TokenService) GetRefreshTokenExpiry() time.Duration {
	return ts.RefreshTokenExpiry
}
