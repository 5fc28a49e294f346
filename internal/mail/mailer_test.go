package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogMailer_NeverLogsTheToken(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core))

	err := m.SendPasswordReset(context.Background(), "agent@example.com", "super-secret-token")
	require.NoError(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "password reset issued", entries[0].Message)

	for _, field := range entries[0].Context {
		assert.NotEqual(t, "super-secret-token", field.String)
	}
}
