package notify

import (
	"context"
	"errors"

	"ticketify/internal/config"
	"ticketify/internal/domain"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

var errNotDelivered = errors.New("notification not delivered")

// BreakerNotifier stops calling a failing channel until the breaker
// half-opens again. Rejected calls count as failed deliveries.
type BreakerNotifier struct {
	next   domain.Notifier
	cb     *gobreaker.CircuitBreaker[struct{}]
	logger *zerolog.Logger
}

func NewBreakerNotifier(name string, next domain.Notifier, cfg config.CircuitBreakerConfig, logger *zerolog.Logger) *BreakerNotifier {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("notifier circuit breaker state change")
		},
	})

	return &BreakerNotifier{next: next, cb: cb, logger: logger}
}

func (n *BreakerNotifier) Notify(ctx context.Context, msg domain.Notification) bool {
	_, err := n.cb.Execute(func() (struct{}, error) {
		if !n.next.Notify(ctx, msg) {
			return struct{}{}, errNotDelivered
		}
		return struct{}{}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			n.logger.Warn().Err(err).Str("ticket_id", msg.TicketID).Msg("notification rejected by circuit breaker")
		}
		return false
	}
	return true
}

// State reports the breaker state; /healthz shows it.
func (n *BreakerNotifier) State() gobreaker.State {
	return n.cb.State()
}
