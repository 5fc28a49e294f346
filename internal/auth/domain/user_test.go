package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUser_HasPassword(t *testing.T) {
	hash := "some-hash"
	empty := ""

	assert.True(t, (&User{PasswordHash: &hash}).HasPassword())
	assert.False(t, (&User{PasswordHash: &empty}).HasPassword())
	assert.False(t, (&User{}).HasPassword())
}

func TestRefreshToken_Usable(t *testing.T) {
	now := time.Now()
	revoked := now.Add(-time.Minute)

	tests := []struct {
		name  string
		token RefreshToken
		want  bool
	}{
		{name: "live token", token: RefreshToken{ExpiresAt: now.Add(time.Hour)}, want: true},
		{name: "expired", token: RefreshToken{ExpiresAt: now.Add(-time.Minute)}, want: false},
		{name: "revoked", token: RefreshToken{ExpiresAt: now.Add(time.Hour), RevokedAt: &revoked}, want: false},
		{name: "expiring this instant", token: RefreshToken{ExpiresAt: now}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.token.Usable(now))
		})
	}
}
