package domain

import (
	"context"
	"time"

	"ticketify/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BookingStore reads and writes the whole booking document. It does no
// locking of its own; read-modify-write callers must hold the admission
// mutex.
type BookingStore interface {
	LoadBookings(ctx context.Context) ([]models.Booking, error)
	SaveBookings(ctx context.Context, bookings []models.Booking) error
}

// SecretStore reads the administrative password document.
type SecretStore interface {
	CheckPassword(ctx context.Context, password string) (bool, error)
}

// MemberDirectory is the read-only identity dataset.
type MemberDirectory interface {
	Lookup(ctx context.Context, name, memberID, phone string) (*models.Member, error)
}

// Notification is the outbound chat payload for a booking.
type Notification struct {
	Username    string `json:"username"`
	TicketID    string `json:"ticketId"`
	IsEarlyBird bool   `json:"isEarlyBird"`
}

// Notifier delivers a notification. It reports success and never returns
// an error; failures are logged by the implementation.
type Notifier interface {
	Notify(ctx context.Context, n Notification) bool
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Snapshotter takes a point-in-time copy of the store.
type Snapshotter interface {
	PerformBackup() error
}

// AttemptLimiter counts calls per key within a window.
type AttemptLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type AdmissionService interface {
	Submit(ctx context.Context, seats []models.Seat, user models.User) (*SubmitResult, error)
	Verify(ctx context.Context, user models.User) (bool, error)
	ListBookings(ctx context.Context) ([]models.Booking, error)
	OccupiedSeats(ctx context.Context) ([]string, error)
	Resend(ctx context.Context, password, bookingID string) error
	ClearAll(ctx context.Context, password string) error
	Authorize(ctx context.Context, password string) error
}

// SubmitResult is returned for an accepted booking.
type SubmitResult struct {
	Booking     models.Booking
	IsEarlyBird bool
}
