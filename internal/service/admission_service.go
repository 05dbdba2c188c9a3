package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ticketify/internal/clock"
	"ticketify/internal/domain"
	"ticketify/internal/earlybird"
	"ticketify/internal/events"
	"ticketify/internal/lock"
	"ticketify/internal/metrics"
	"ticketify/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Dependencies groups the collaborators of AdmissionService. Events and
// Snapshotter are optional.
type Dependencies struct {
	Store       domain.BookingStore
	Directory   domain.MemberDirectory
	Secrets     domain.SecretStore
	Notifier    domain.Notifier
	Events      domain.EventPublisher
	Snapshotter domain.Snapshotter
	Clock       clock.Clock
	Window      models.Window
	Classifier  earlybird.Classifier
	// NotifyTimeout bounds one outbound dispatch. Zero uses the default.
	NotifyTimeout time.Duration
}

// AdmissionService admits seat bookings. Every read-modify-write of the
// booking document happens while holding mu.
type AdmissionService struct {
	store         domain.BookingStore
	directory     domain.MemberDirectory
	secrets       domain.SecretStore
	notifier      domain.Notifier
	events        domain.EventPublisher
	snapshotter   domain.Snapshotter
	clock         clock.Clock
	window        models.Window
	classifier    earlybird.Classifier
	notifyTimeout time.Duration
	mu            *lock.Mutex
	newID         func() (string, error)
	logger        *zerolog.Logger
}

var _ domain.AdmissionService = (*AdmissionService)(nil)

func NewAdmissionService(deps Dependencies, logger *zerolog.Logger) *AdmissionService {
	if deps.Clock == nil {
		deps.Clock = clock.NewSystem()
	}
	if deps.Classifier.Cap == 0 {
		deps.Classifier = earlybird.Default()
	}
	if deps.NotifyTimeout <= 0 {
		deps.NotifyTimeout = models.DefaultNotifyTimeout
	}
	return &AdmissionService{
		store:         deps.Store,
		directory:     deps.Directory,
		secrets:       deps.Secrets,
		notifier:      deps.Notifier,
		events:        deps.Events,
		snapshotter:   deps.Snapshotter,
		clock:         deps.Clock,
		window:        deps.Window,
		classifier:    deps.Classifier,
		notifyTimeout: deps.NotifyTimeout,
		mu:            &lock.Mutex{},
		newID:         newBookingID,
		logger:        logger,
	}
}

func newBookingID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Submit admits one booking for a verified member. The call returns after
// the notification has been attempted; the booking stands whatever the
// delivery outcome.
func (s *AdmissionService) Submit(ctx context.Context, seats []models.Seat, user models.User) (*domain.SubmitResult, error) {
	if len(seats) == 0 {
		metrics.IncAdmission("no_seats")
		return nil, domain.ErrNoSeats
	}

	member, err := s.directory.Lookup(ctx, user.Name, user.MemberID, user.PhoneNumber)
	if err != nil {
		metrics.IncAdmission("error")
		return nil, err
	}
	if member == nil {
		metrics.IncAdmission("not_eligible")
		return nil, domain.ErrNotEligible
	}

	if err := s.checkWindow(s.clock.Now()); err != nil {
		if errors.Is(err, domain.ErrNotYetOpen) {
			metrics.IncAdmission("not_open")
		} else {
			metrics.IncAdmission("closed")
		}
		return nil, err
	}

	booking, err := s.commit(ctx, seats, user)
	if err != nil {
		metrics.IncAdmission(admissionOutcome(err))
		return nil, err
	}
	metrics.IncAdmission("accepted")

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("member_id", member.MemberID).
		Str("seats", booking.SeatRef()).
		Bool("early_bird", booking.IsEarlyBird).
		Msg("booking accepted")
	s.publish(events.EventBookingCreated, booking)

	status := s.dispatch(ctx, member.MemberID, booking)
	booking.DeliveryStatus = status

	return &domain.SubmitResult{Booking: booking, IsEarlyBird: booking.IsEarlyBird}, nil
}

func (s *AdmissionService) checkWindow(now time.Time) error {
	if !s.window.Open.IsZero() && now.Before(s.window.Open) {
		return domain.ErrNotYetOpen
	}
	if !s.window.Close.IsZero() && !now.Before(s.window.Close) {
		return domain.ErrClosed
	}
	return nil
}

// commit runs the acceptance decision against a fresh read of the store.
func (s *AdmissionService) commit(ctx context.Context, seats []models.Seat, user models.User) (models.Booking, error) {
	queued := time.Now()
	return lock.RunExclusive(s.mu, func() (models.Booking, error) {
		metrics.ObserveLockWait(time.Since(queued))

		bookings, err := s.load(ctx)
		if err != nil {
			return models.Booking{}, err
		}

		taken := make(map[string]bool)
		for i := range bookings {
			existing := &bookings[i]
			if models.SameIdentity(existing.User, user) {
				return models.Booking{}, &domain.AlreadyBookedError{
					BookingID: existing.ID,
					SeatRef:   existing.SeatRef(),
				}
			}
			for _, seat := range existing.Seats {
				taken[seat.ID] = true
			}
		}

		for _, seat := range seats {
			if taken[seat.ID] {
				return models.Booking{}, domain.ErrSeatConflict
			}
		}

		id, err := s.newID()
		if err != nil {
			return models.Booking{}, fmt.Errorf("generate booking id: %w", err)
		}

		booking := models.Booking{
			ID:             id,
			CreatedAt:      s.clock.Now(),
			User:           user,
			Seats:          normalizeSeats(seats),
			DeliveryStatus: models.DeliveryPending,
		}
		bookings = append(bookings, booking)
		booking.IsEarlyBird = s.classifier.IsEarlyBird(bookings, id)
		bookings[len(bookings)-1].IsEarlyBird = booking.IsEarlyBird

		if err := s.save(ctx, bookings); err != nil {
			return models.Booking{}, err
		}
		return booking, nil
	})
}

// normalizeSeats drops repeated seat ids, keeping the first, and forces
// every price to 0; verified members do not pay.
func normalizeSeats(seats []models.Seat) []models.Seat {
	out := make([]models.Seat, 0, len(seats))
	seen := make(map[string]bool, len(seats))
	for _, seat := range seats {
		if seen[seat.ID] {
			continue
		}
		seen[seat.ID] = true
		seat.Price = 0
		out = append(out, seat)
	}
	return out
}

// dispatch notifies outside the mutex, then records the outcome. The
// request context is detached so a disconnected client does not leave the
// booking pending.
func (s *AdmissionService) dispatch(ctx context.Context, username string, booking models.Booking) models.DeliveryStatus {
	ctx = context.WithoutCancel(ctx)

	notifyCtx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	ok := s.notifier.Notify(notifyCtx, domain.Notification{
		Username:    username,
		TicketID:    booking.SeatRef(),
		IsEarlyBird: booking.IsEarlyBird,
	})
	cancel()

	status := models.DeliveryFailed
	if ok {
		status = models.DeliverySent
	}

	if err := s.patchDelivery(ctx, booking.ID, status, booking.IsEarlyBird); err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("failed to record delivery status")
	}
	return status
}

// patchDelivery sets the delivery status of one booking by id. A booking
// that vanished in the meantime is ignored.
func (s *AdmissionService) patchDelivery(ctx context.Context, id string, status models.DeliveryStatus, earlyBird bool) error {
	var patched *models.Booking
	err := s.mu.Do(func() error {
		bookings, err := s.load(ctx)
		if err != nil {
			return err
		}
		for i := range bookings {
			if bookings[i].ID == id {
				bookings[i].DeliveryStatus = status
				bookings[i].IsEarlyBird = earlyBird
				patched = &bookings[i]
				return s.save(ctx, bookings)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if patched == nil {
		s.logger.Warn().Str("booking_id", id).Msg("booking gone before delivery status update")
		return nil
	}
	s.publish(events.EventDeliveryUpdated, *patched)
	return nil
}

// QueueDepth returns how many callers are waiting for the admission mutex.
func (s *AdmissionService) QueueDepth() int {
	return s.mu.Waiting()
}

// Verify reports whether the identity resolves in the member directory.
func (s *AdmissionService) Verify(ctx context.Context, user models.User) (bool, error) {
	member, err := s.directory.Lookup(ctx, user.Name, user.MemberID, user.PhoneNumber)
	if err != nil {
		return false, err
	}
	return member != nil, nil
}

// ListBookings returns the bookings in stored order with early-bird
// recomputed. It does not take the mutex.
func (s *AdmissionService) ListBookings(ctx context.Context) ([]models.Booking, error) {
	bookings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.classifier.Annotate(bookings), nil
}

// OccupiedSeats returns every booked seat id. It does not take the mutex.
func (s *AdmissionService) OccupiedSeats(ctx context.Context) ([]string, error) {
	bookings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(bookings))
	for i := range bookings {
		ids = append(ids, bookings[i].SeatIDs()...)
	}
	return ids, nil
}

func (s *AdmissionService) load(ctx context.Context) ([]models.Booking, error) {
	bookings, err := s.store.LoadBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return bookings, nil
}

func (s *AdmissionService) save(ctx context.Context, bookings []models.Booking) error {
	if err := s.store.SaveBookings(ctx, bookings); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *AdmissionService) publish(eventType string, b models.Booking) {
	if s.events == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:      b.ID,
		MemberID:       b.User.MemberID,
		SeatIDs:        b.SeatIDs(),
		IsEarlyBird:    b.IsEarlyBird,
		DeliveryStatus: string(b.DeliveryStatus),
		CreatedAt:      b.CreatedAt,
	}
	if err := s.events.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}

func admissionOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyBooked):
		return "already_booked"
	case errors.Is(err, domain.ErrSeatConflict):
		return "seat_conflict"
	default:
		return "error"
	}
}
