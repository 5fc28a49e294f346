package service

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"image/png"
	"math/big"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	autherrors "github.com/samuelweirer/psa-putzi-sub000/internal/errors"
)

const (
	totpPeriod         = 30
	recoveryCodeLength = 8
	// 32 symbols, ambiguous glyphs (I, L, O, U, 0/1 lookalikes) left out so
	// codes survive being read over the phone.
	recoveryAlphabet = "ABCDEFGHJKMNPQRSTVWXYZ23456789"
)

// MfaService handles TOTP enrollment material and the recovery-code
// lifecycle. All verification helpers are tolerant of malformed input and
// answer false rather than erroring.
type MfaService struct {
	Issuer    string
	SkewSteps uint
}

func NewMfaService(issuer string, skewSteps int) *MfaService {
	if skewSteps < 0 {
		skewSteps = 0
	}
	return &MfaService{Issuer: issuer, SkewSteps: uint(skewSteps)}
}

// GenerateSecret returns a fresh base32 secret for the given account label
// and a scannable provisioning QR as a PNG data URL.
func (m *MfaService) GenerateSecret(accountLabel string) (string, string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      m.Issuer,
		AccountName: accountLabel,
	})
	if err != nil {
		return "", "", err
	}

	img, err := key.Image(200, 200)
	if err != nil {
		return "", "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", "", err
	}
	qr := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	return key.Secret(), qr, nil
}

// VerifyCode checks a time-based code against the secret, tolerating the
// configured number of 30-second steps of clock skew in either direction.
func (m *MfaService) VerifyCode(secret, code string) bool {
	ok, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      m.SkewSteps,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return ok
}

// ValidateCodeFormat rejects anything that is not exactly six ASCII digits.
func (m *MfaService) ValidateCodeFormat(code string) error {
	if len(code) != 6 {
		return autherrors.Validation("INVALID_CODE_FORMAT", "MFA code must be 6 digits")
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return autherrors.Validation("INVALID_CODE_FORMAT", "MFA code must be 6 digits")
		}
	}
	return nil
}

// GenerateRecoveryCodes returns count fixed-width uppercase alphanumeric
// codes. Uniqueness is probabilistic; with an 8-character draw from a
// 30-symbol alphabet a collision inside one set is negligible.
func (m *MfaService) GenerateRecoveryCodes(count int) ([]string, error) {
	codes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		var sb strings.Builder
		for j := 0; j < recoveryCodeLength; j++ {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(recoveryAlphabet))))
			if err != nil {
				return nil, err
			}
			sb.WriteByte(recoveryAlphabet[n.Int64()])
		}
		codes = append(codes, sb.String())
	}
	return codes, nil
}

// VerifyRecoveryCode reports whether candidate matches any stored code,
// case-insensitively.
func (m *MfaService) VerifyRecoveryCode(codes []string, candidate string) bool {
	for _, code := range codes {
		if strings.EqualFold(code, candidate) {
			return true
		}
	}
	return false
}

// RemoveRecoveryCode returns a new slice without any case-insensitive match
// of used. The input slice is never mutated.
func (m *MfaService) RemoveRecoveryCode(codes []string, used string) []string {
	remaining := make([]string, 0, len(codes))
	for _, code := range codes {
		if !strings.EqualFold(code, used) {
			remaining = append(remaining, code)
		}
	}
	return remaining
}
