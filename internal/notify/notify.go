package notify

import (
	"fmt"

	"ticketify/internal/config"
	"ticketify/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// New builds the notifier selected by cfg.Driver, wrapped in a circuit
// breaker when enabled.
func New(cfg config.NotifyConfig, logger *zerolog.Logger) (domain.Notifier, error) {
	var (
		n    domain.Notifier
		name string
	)

	switch cfg.Driver {
	case "webhook":
		n, name = NewWebhookNotifier(cfg.Webhook.URL, cfg.Timeout, logger), channelWebhook
	case "telegram":
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			return nil, fmt.Errorf("create telegram bot: %w", err)
		}
		bot.Debug = cfg.Telegram.Debug
		logger.Info().Str("bot", bot.Self.UserName).Msg("telegram notifier authorized")
		n, name = NewTelegramNotifier(bot, cfg.Telegram.ChatID, cfg.Timeout, logger), channelTelegram
	case "log", "":
		return NewLogNotifier(logger), nil
	default:
		return nil, fmt.Errorf("unknown notify driver %q", cfg.Driver)
	}

	if cfg.CircuitBreaker.Enabled {
		n = NewBreakerNotifier(name, n, cfg.CircuitBreaker, logger)
	}
	return n, nil
}
