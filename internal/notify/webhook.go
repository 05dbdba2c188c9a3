package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"ticketify/internal/domain"
	"ticketify/internal/metrics"

	"github.com/rs/zerolog"
)

const channelWebhook = "webhook"

// WebhookNotifier posts the notification as JSON to a chat automation hook.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	timeout time.Duration
	logger  *zerolog.Logger
}

func NewWebhookNotifier(url string, timeout time.Duration, logger *zerolog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:     url,
		client:  &http.Client{},
		timeout: timeout,
		logger:  logger,
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, msg domain.Notification) bool {
	ok := n.post(ctx, msg)
	metrics.IncNotification(channelWebhook, ok)
	return ok
}

func (n *WebhookNotifier) post(ctx context.Context, msg domain.Notification) bool {
	if n.url == "" {
		n.logger.Warn().Str("ticket_id", msg.TicketID).Msg("webhook url not configured")
		return false
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	body, err := json.Marshal(msg)
	if err != nil {
		n.logger.Error().Err(err).Str("ticket_id", msg.TicketID).Msg("marshal notification")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Error().Err(err).Msg("build webhook request")
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn().Err(err).Str("ticket_id", msg.TicketID).Msg("webhook delivery failed")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		n.logger.Warn().
			Int("status", resp.StatusCode).
			Str("ticket_id", msg.TicketID).
			Msg("webhook rejected notification")
		return false
	}

	n.logger.Debug().Str("ticket_id", msg.TicketID).Msg("webhook delivered")
	return true
}
