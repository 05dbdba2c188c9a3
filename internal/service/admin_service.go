package service

import (
	"context"
	"fmt"

	"ticketify/internal/domain"
	"ticketify/internal/events"
	"ticketify/internal/lock"
	"ticketify/internal/models"
)

// Authorize checks the administrative password.
func (s *AdmissionService) Authorize(ctx context.Context, password string) error {
	ok, err := s.secrets.CheckPassword(ctx, password)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrForbidden
	}
	return nil
}

// Resend re-dispatches the notification of one booking after checking the
// administrative password.
func (s *AdmissionService) Resend(ctx context.Context, password, bookingID string) error {
	if err := s.Authorize(ctx, password); err != nil {
		return err
	}
	return s.Redeliver(ctx, bookingID)
}

type resendTask struct {
	user      models.User
	seatRef   string
	earlyBird bool
}

// Redeliver re-verifies the booking's identity, recomputes early-bird over
// the current history, notifies and patches the delivery status. Repeating
// it only repeats the notification.
func (s *AdmissionService) Redeliver(ctx context.Context, bookingID string) error {
	task, err := lock.RunExclusive(s.mu, func() (*resendTask, error) {
		bookings, err := s.load(ctx)
		if err != nil {
			return nil, err
		}
		for i := range bookings {
			if bookings[i].ID == bookingID {
				return &resendTask{
					user:      bookings[i].User,
					seatRef:   bookings[i].SeatRef(),
					earlyBird: s.classifier.IsEarlyBird(bookings, bookingID),
				}, nil
			}
		}
		return nil, domain.ErrBookingNotFound
	})
	if err != nil {
		return err
	}

	member, err := s.directory.Lookup(ctx, task.user.Name, task.user.MemberID, task.user.PhoneNumber)
	if err != nil {
		return err
	}
	if member == nil {
		return domain.ErrIdentityUnverifiable
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	ok := s.notifier.Notify(notifyCtx, domain.Notification{
		Username:    member.MemberID,
		TicketID:    task.seatRef,
		IsEarlyBird: task.earlyBird,
	})
	cancel()

	status := models.DeliveryFailed
	if ok {
		status = models.DeliverySent
	}
	if err := s.patchDelivery(context.WithoutCancel(ctx), bookingID, status, task.earlyBird); err != nil {
		return err
	}

	s.logger.Info().
		Str("booking_id", bookingID).
		Str("delivery_status", string(status)).
		Msg("notification redelivered")

	if !ok {
		return domain.ErrDeliveryFailed
	}
	return nil
}

// FailedDeliveries lists ids of bookings whose last delivery failed.
func (s *AdmissionService) FailedDeliveries(ctx context.Context) ([]string, error) {
	bookings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	for i := range bookings {
		if bookings[i].DeliveryStatus == models.DeliveryFailed {
			ids = append(ids, bookings[i].ID)
		}
	}
	return ids, nil
}

// ClearAll wipes every booking after checking the administrative password.
// With a snapshotter configured the store is backed up first and a failed
// backup aborts the wipe.
func (s *AdmissionService) ClearAll(ctx context.Context, password string) error {
	if err := s.Authorize(ctx, password); err != nil {
		return err
	}

	removed, err := lock.RunExclusive(s.mu, func() (int, error) {
		bookings, err := s.load(ctx)
		if err != nil {
			return 0, err
		}
		if s.snapshotter != nil && len(bookings) > 0 {
			if err := s.snapshotter.PerformBackup(); err != nil {
				return 0, fmt.Errorf("%w: backup before wipe: %v", domain.ErrStoreUnavailable, err)
			}
		}
		if err := s.save(ctx, []models.Booking{}); err != nil {
			return 0, err
		}
		return len(bookings), nil
	})
	if err != nil {
		return err
	}

	s.logger.Warn().Int("removed", removed).Msg("all bookings cleared")
	if s.events != nil {
		if err := s.events.PublishJSON(events.EventBookingsCleared, events.ClearedPayload{Removed: removed}); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish event")
		}
	}
	return nil
}
