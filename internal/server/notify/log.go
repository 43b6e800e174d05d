package notify

import (
	"context"

	"github.com/dmitrijs2005/usermanager/internal/logging"
)

// LogSender records messages in the log instead of sending them. The body
// carries the confirmation link, so only recipients and subject are logged.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(l logging.Logger) *LogSender {
	return &LogSender{logger: l}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info(ctx, "notification not delivered, no smtp relay configured",
		"to", msg.To, "subject", msg.Subject)
	return nil
}
