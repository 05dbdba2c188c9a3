package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ticketify/internal/domain"
	"ticketify/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const channelTelegram = "telegram"

// TelegramNotifier posts a ticket message into an operator chat.
type TelegramNotifier struct {
	bot     domain.TelegramSender
	chatID  int64
	timeout time.Duration
	logger  *zerolog.Logger
}

func NewTelegramNotifier(bot domain.TelegramSender, chatID int64, timeout time.Duration, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		bot:     bot,
		chatID:  chatID,
		timeout: timeout,
		logger:  logger,
	}
}

func (n *TelegramNotifier) Notify(ctx context.Context, msg domain.Notification) bool {
	ok := n.send(ctx, msg)
	metrics.IncNotification(channelTelegram, ok)
	return ok
}

// send runs the blocking bot call in a goroutine so the deadline still
// bounds it.
func (n *TelegramNotifier) send(ctx context.Context, msg domain.Notification) bool {
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		_, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, FormatTicket(msg)))
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			n.logger.Warn().Err(err).Str("ticket_id", msg.TicketID).Msg("telegram delivery failed")
			return false
		}
		return true
	case <-ctx.Done():
		n.logger.Warn().Err(ctx.Err()).Str("ticket_id", msg.TicketID).Msg("telegram delivery timed out")
		return false
	}
}

// FormatTicket renders the plain-text chat message for a ticket.
func FormatTicket(msg domain.Notification) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket %s\n", msg.TicketID)
	fmt.Fprintf(&b, "Holder: %s\n", msg.Username)
	if msg.IsEarlyBird {
		b.WriteString("Early bird: yes")
	} else {
		b.WriteString("Early bird: no")
	}
	return b.String()
}
