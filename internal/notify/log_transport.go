package notify

import (
	"context"
	"log/slog"
)

// LogTransport writes notifications to the log. It is the default when no
// broker is configured.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport creates a LogTransport.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

// Send implements Transport.
func (t *LogTransport) Send(_ context.Context, n Notification) error {
	t.logger.Info("notification",
		"notification_id", n.ID,
		"kind", n.Kind,
		"member_id", n.MemberID,
		"book_id", n.BookID,
		"message", n.Message,
	)
	return nil
}

// Close implements Transport.
func (t *LogTransport) Close() error { return nil }
