package push

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the logger instead of a device channel.
// It is meant for development setups without FCM credentials.
type LogSender struct {
	logger    *slog.Logger
	batchSize int
}

// NewLogSender constructs a LogSender. A non-positive batchSize defaults to FCMMaxBatchSize.
func NewLogSender(logger *slog.Logger, batchSize int) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = FCMMaxBatchSize
	}
	return &LogSender{logger: logger.With("component", "push.log"), batchSize: batchSize}
}

// MaxBatchSize implements Sender.
func (s *LogSender) MaxBatchSize() int { return s.batchSize }

// Send implements Sender. Every message is reported as delivered.
func (s *LogSender) Send(ctx context.Context, messages []Message) ([]Result, error) {
	results := make([]Result, len(messages))
	for i, msg := range messages {
		s.logger.InfoContext(ctx, "push message",
			"token", maskToken(msg.Token),
			"title", msg.Title,
			"body", msg.Body,
			"data", msg.Data,
		)
		results[i] = Result{Token: msg.Token}
	}
	return results, nil
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return "****" + token[len(token)-6:]
}
