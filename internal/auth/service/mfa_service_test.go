package service

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMfaService_GenerateSecret(t *testing.T) {
	m := NewMfaService("PSA Putzi", 1)

	secret, qr, err := m.GenerateSecret("agent@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.True(t, strings.HasPrefix(qr, "data:image/png;base64,"))

	// Two enrollments never share a secret.
	second, _, err := m.GenerateSecret("agent@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, secret, second)
}

func TestMfaService_VerifyCode(t *testing.T) {
	m := NewMfaService("PSA Putzi", 1)

	secret, _, err := m.GenerateSecret("agent@example.com")
	require.NoError(t, err)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	assert.True(t, m.VerifyCode(secret, code))

	assert.False(t, m.VerifyCode(secret, "000000"))
	assert.False(t, m.VerifyCode(secret, ""))
	assert.False(t, m.VerifyCode(secret, "not-a-code"))
	assert.False(t, m.VerifyCode("", code))
}

func TestMfaService_VerifyCodeToleratesSkew(t *testing.T) {
	m := NewMfaService("PSA Putzi", 1)

	secret, _, err := m.GenerateSecret("agent@example.com")
	require.NoError(t, err)

	// One step behind and ahead stay valid with skew 1.
	behind, err := totp.GenerateCode(secret, time.Now().Add(-30*time.Second))
	require.NoError(t, err)
	assert.True(t, m.VerifyCode(secret, behind))

	ahead, err := totp.GenerateCode(secret, time.Now().Add(30*time.Second))
	require.NoError(t, err)
	assert.True(t, m.VerifyCode(secret, ahead))

	// Two steps out is rejected.
	stale, err := totp.GenerateCode(secret, time.Now().Add(-90*time.Second))
	require.NoError(t, err)
	assert.False(t, m.VerifyCode(secret, stale))
}

func TestMfaService_NoSkewRejectsNeighbours(t *testing.T) {
	m := NewMfaService("PSA Putzi", 0)

	secret, _, err := m.GenerateSecret("agent@example.com")
	require.NoError(t, err)

	current, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	assert.True(t, m.VerifyCode(secret, current))

	stale, err := totp.GenerateCode(secret, time.Now().Add(-60*time.Second))
	require.NoError(t, err)
	assert.False(t, m.VerifyCode(secret, stale))
}

func TestMfaService_ValidateCodeFormat(t *testing.T) {
	m := NewMfaService("PSA Putzi", 1)

	assert.NoError(t, m.ValidateCodeFormat("123456"))
	assert.NoError(t, m.ValidateCodeFormat("000000"))

	assert.Error(t, m.ValidateCodeFormat(""))
	assert.Error(t, m.ValidateCodeFormat("12345"))
	assert.Error(t, m.ValidateCodeFormat("1234567"))
	assert.Error(t, m.ValidateCodeFormat("12345a"))
	assert.Error(t, m.ValidateCodeFormat("12 456"))
	assert.Error(t, m.ValidateCodeFormat("１２３４５６"))
}

func TestMfaService_GenerateRecoveryCodes(t *testing.T) {
	m := NewMfaService("PSA Putzi", 1)

	codes, err := m.GenerateRecoveryCodes(10)
	require.NoError(t, err)
	require.Len(t, codes, 10)

	for _, code := range codes {
		assert.Len(t, code, 8)
		for i := 0; i < len(code); i++ {
			assert.Contains(t, recoveryAlphabet, string(code[i]))
		}
	}
}

func TestMfaService_VerifyRecoveryCode(t *testing.T) {
	m := NewMfaService("PSA Putzi", 1)
	codes := []string{"ABCD2345", "WXYZ6789"}

	assert.True(t, m.VerifyRecoveryCode(codes, "ABCD2345"))
	assert.True(t, m.VerifyRecoveryCode(codes, "abcd2345"))
	assert.False(t, m.VerifyRecoveryCode(codes, "ABCD234"))
	assert.False(t, m.VerifyRecoveryCode(codes, ""))
	assert.False(t, m.VerifyRecoveryCode(nil, "ABCD2345"))
}

func TestMfaService_RemoveRecoveryCode(t *testing.T) {
	m := NewMfaService("PSA Putzi", 1)
	codes := []string{"ABCD2345", "WXYZ6789", "abcd2345"}

	remaining := m.RemoveRecoveryCode(codes, "ABCD2345")
	assert.Equal(t, []string{"WXYZ6789"}, remaining)

	// The input slice is untouched.
	assert.Equal(t, []string{"ABCD2345", "WXYZ6789", "abcd2345"}, codes)

	assert.Equal(t, []string{"ABCD2345", "WXYZ6789", "abcd2345"},
		m.RemoveRecoveryCode(codes, "missing"))
}
