package notify

import (
	"context"

	"ticketify/internal/domain"
	"ticketify/internal/metrics"

	"github.com/rs/zerolog"
)

// LogNotifier only writes the notification to the log. Used when no chat
// channel is configured.
type LogNotifier struct {
	logger *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, msg domain.Notification) bool {
	n.logger.Info().
		Str("username", msg.Username).
		Str("ticket_id", msg.TicketID).
		Bool("early_bird", msg.IsEarlyBird).
		Msg("notification")
	metrics.IncNotification("log", true)
	return true
}
