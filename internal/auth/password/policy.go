package password

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	autherrors "github.com/samuelweirer/psa-putzi-sub000/internal/errors"
)

const specialChars = "!@#$%^&*()-_=+[]{};:,.<>?"

type Policy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
}

func DefaultPolicy() Policy {
	return Policy{
		MinLength:      8,
		RequireUpper:   true,
		RequireLower:   true,
		RequireDigit:   true,
		RequireSpecial: true,
	}
}

// Validate checks every enabled rule and reports all violations in a single
// error; it never stops at the first unmet rule.
func (p Policy) Validate(pw string) error {
	var violations []string

	if len(pw) < p.MinLength {
		violations = append(violations, fmt.Sprintf("at least %d characters", p.MinLength))
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(specialChars, r):
			hasSpecial = true
		}
	}

	if p.RequireUpper && !hasUpper {
		violations = append(violations, "an uppercase letter")
	}
	if p.RequireLower && !hasLower {
		violations = append(violations, "a lowercase letter")
	}
	if p.RequireDigit && !hasDigit {
		violations = append(violations, "a digit")
	}
	if p.RequireSpecial && !hasSpecial {
		violations = append(violations, "a special character")
	}

	if len(violations) > 0 {
		return autherrors.Validation("PASSWORD_POLICY_VIOLATION",
			"password must contain "+strings.Join(violations, ", "))
	}
	return nil
}

const (
	upperChars = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	lowerChars = "abcdefghijkmnopqrstuvwxyz"
	digitChars = "0123456789"
)

// Generate produces a random password satisfying every enabled rule. One
// character per enabled class is placed first, the remainder drawn from the
// full alphabet, then the result is shuffled so class positions are not
// predictable.
func (p Policy) Generate(length int) (string, error) {
	if length < p.MinLength {
		length = p.MinLength
	}

	var classes []string
	if p.RequireUpper {
		classes = append(classes, upperChars)
	}
	if p.RequireLower {
		classes = append(classes, lowerChars)
	}
	if p.RequireDigit {
		classes = append(classes, digitChars)
	}
	if p.RequireSpecial {
		classes = append(classes, specialChars)
	}
	if length < len(classes) {
		length = len(classes)
	}

	all := upperChars + lowerChars + digitChars + specialChars
	out := make([]byte, 0, length)

	for _, class := range classes {
		c, err := randomChar(class)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}
	for len(out) < length {
		c, err := randomChar(all)
		if err != nil {
			return "", err
		}
		out = append(out, c)
	}

	// Fisher-Yates with crypto/rand indices.
	for i := len(out) - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		out[i], out[j.Int64()] = out[j.Int64()], out[i]
	}

	return string(out), nil
}

func randomChar(alphabet string) (byte, error) {
	i, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, err
	}
	return alphabet[i.Int64()], nil
}
