package password

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	autherrors "github.com/samuelweirer/psa-putzi-sub000/internal/errors"
)

func TestPolicy_Validate(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "satisfies every rule", password: "Abcdef1!", wantErr: false},
		{name: "longer than minimum", password: "Str0ng&Longer", wantErr: false},
		{name: "too short", password: "Ab1!", wantErr: true},
		{name: "no uppercase", password: "abcdef1!", wantErr: true},
		{name: "no lowercase", password: "ABCDEF1!", wantErr: true},
		{name: "no digit", password: "Abcdefg!", wantErr: true},
		{name: "no special", password: "Abcdefg1", wantErr: true},
		{name: "empty", password: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Validate(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPolicy_ValidateReportsAllViolations(t *testing.T) {
	policy := DefaultPolicy()

	// Lowercase only and short: four rules broken at once.
	err := policy.Validate("abc")
	require.Error(t, err)

	var opErr *autherrors.Error
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "PASSWORD_POLICY_VIOLATION", opErr.Code)
	assert.Contains(t, opErr.Message, "at least 8 characters")
	assert.Contains(t, opErr.Message, "an uppercase letter")
	assert.Contains(t, opErr.Message, "a digit")
	assert.Contains(t, opErr.Message, "a special character")
	assert.NotContains(t, opErr.Message, "a lowercase letter")
}

func TestPolicy_ValidateDisabledRules(t *testing.T) {
	policy := Policy{MinLength: 4}

	assert.NoError(t, policy.Validate("aaaa"))
	assert.Error(t, policy.Validate("aaa"))
}

func TestPolicy_GenerateSatisfiesItself(t *testing.T) {
	policy := DefaultPolicy()

	for i := 0; i < 20; i++ {
		pw, err := policy.Generate(12)
		require.NoError(t, err)
		assert.Len(t, pw, 12)
		assert.NoError(t, policy.Validate(pw))
	}
}

func TestPolicy_GenerateIsNotDeterministic(t *testing.T) {
	policy := DefaultPolicy()

	first, err := policy.Generate(16)
	require.NoError(t, err)
	second, err := policy.Generate(16)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
