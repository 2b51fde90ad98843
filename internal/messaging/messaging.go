// Package messaging delivers outbound texts to users.
package messaging

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"spendsync/internal/engine"
	applog "spendsync/internal/log"
)

// MaxBodyLength is the longest body a single outbound message may carry.
const MaxBodyLength = 1600

// Fit shortens body to MaxBodyLength runes, marking the cut with an ellipsis.
func Fit(body string) string {
	if utf8.RuneCountInString(body) <= MaxBodyLength {
		return body
	}
	runes := []rune(body)
	return string(runes[:MaxBodyLength-1]) + "…"
}

// LogMessenger writes messages to the log instead of sending them. It is
// used when no SMS provider is configured.
type LogMessenger struct {
	logger *slog.Logger
}

var _ engine.Messenger = (*LogMessenger)(nil)

func NewLogMessenger(logger *slog.Logger) *LogMessenger {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMessenger{logger: applog.WithComponent(logger, applog.ComponentMessaging)}
}

func (m *LogMessenger) Send(ctx context.Context, to, body string) error {
	m.logger.InfoContext(ctx, "Outbound message", applog.FieldPhone, to, "body", Fit(body))
	return nil
}
