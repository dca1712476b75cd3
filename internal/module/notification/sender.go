package notification

import (
	"context"

	"go.uber.org/zap"
)

// Sender delivers one rendered HTML message.
type Sender interface {
	// Name labels the channel in logs and metrics.
	Name() string
	Send(ctx context.Context, to, subject, body string) error
}

// NoOpSender logs messages instead of delivering them.
type NoOpSender struct {
	logger *zap.Logger
}

// NewNoOpSender creates a no-op sender.
func NewNoOpSender(logger *zap.Logger) *NoOpSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoOpSender{logger: logger}
}

// Name implements Sender.
func (s *NoOpSender) Name() string { return "noop" }

// Send logs but doesn't send.
func (s *NoOpSender) Send(_ context.Context, to, subject, body string) error {
	s.logger.Info("notification (no-op)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)),
	)
	return nil
}
