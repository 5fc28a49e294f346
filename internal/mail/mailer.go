package mail

import (
	"context"

	"go.uber.org/zap"
)

// LogMailer stands in for real delivery. It logs that a reset was issued
// without ever logging the token itself.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.logger.Info("password reset issued", zap.String("email", email))
	return nil
}
