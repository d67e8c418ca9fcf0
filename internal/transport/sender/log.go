package sender

import (
	"context"

	"certalert/internal/entity"

	"go.uber.org/zap"
)

const ProviderLog = "log"

// LogTransport writes notifications to the log instead of delivering them.
// It is the fallback when no provider is configured.
type LogTransport struct {
	log *zap.Logger
}

func NewLogTransport(log *zap.Logger) *LogTransport {
	return &LogTransport{log: log}
}

func (s *LogTransport) Name() string { return ProviderLog }

func (s *LogTransport) Send(ctx context.Context, msg entity.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.log.Info("notification (log transport)",
		zap.String("reminder_id", msg.ReminderID.String()),
		zap.String("tier", msg.Tier.String()),
		zap.String("from", msg.From),
		zap.Strings("to", msg.To),
		zap.String("reply_to", msg.ReplyTo),
		zap.String("subject", msg.Subject),
	)
	return nil
}
