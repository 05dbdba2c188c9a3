package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"ticketify/internal/clock"
	"ticketify/internal/domain"
	"ticketify/internal/earlybird"
	"ticketify/internal/models"

	"github.com/rs/zerolog"
)

type fakeStore struct {
	mu       sync.Mutex
	bookings []models.Booking
	saves    int
	loadErr  error
}

func (s *fakeStore) LoadBookings(context.Context) ([]models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return append([]models.Booking(nil), s.bookings...), nil
}

func (s *fakeStore) SaveBookings(_ context.Context, bookings []models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings = append([]models.Booking(nil), bookings...)
	s.saves++
	return nil
}

func (s *fakeStore) snapshot() []models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Booking(nil), s.bookings...)
}

type fakeDirectory struct {
	mu        sync.Mutex
	members   []models.Member
	acceptAll bool
	err       error
}

func (d *fakeDirectory) Lookup(_ context.Context, name, memberID, phone string) (*models.Member, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	if d.acceptAll {
		return &models.Member{Name: name, MemberID: memberID, Phone: phone}, nil
	}
	for _, m := range d.members {
		if models.NormalizeName(m.Name) == models.NormalizeName(name) &&
			models.NormalizeMemberID(m.MemberID) == models.NormalizeMemberID(memberID) &&
			models.NormalizePhone(m.Phone) == models.NormalizePhone(phone) {
			found := m
			return &found, nil
		}
	}
	return nil, nil
}

func (d *fakeDirectory) setMembers(members ...models.Member) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members = members
}

type fakeSecrets struct {
	password string
	err      error
}

func (s fakeSecrets) CheckPassword(_ context.Context, password string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return password == s.password, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	ok      bool
	calls   []domain.Notification
	ctxErrs []error
}

func (n *fakeNotifier) Notify(ctx context.Context, msg domain.Notification) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, msg)
	n.ctxErrs = append(n.ctxErrs, ctx.Err())
	return n.ok
}

func (n *fakeNotifier) setOK(ok bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ok = ok
}

func (n *fakeNotifier) sent() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Notification(nil), n.calls...)
}

type fakeSnapshotter struct {
	calls int
	err   error
}

func (s *fakeSnapshotter) PerformBackup() error {
	s.calls++
	return s.err
}

var (
	opensAt  = time.Date(2025, 12, 29, 7, 30, 0, 0, time.UTC)
	closesAt = opensAt.Add(24 * time.Hour)

	memberA = models.Member{Name: "Nguyen Van A", MemberID: "Rocket1", Phone: "'0911000111"}
	userA   = models.User{Name: "nguyen van a", MemberID: "rocket1", PhoneNumber: "0911000111"}
)

type harness struct {
	svc       *AdmissionService
	store     *fakeStore
	directory *fakeDirectory
	notifier  *fakeNotifier
	snapshots *fakeSnapshotter
	clock     *clock.Manual
}

func newHarness() *harness {
	h := &harness{
		store:     &fakeStore{},
		directory: &fakeDirectory{members: []models.Member{memberA}},
		notifier:  &fakeNotifier{ok: true},
		snapshots: &fakeSnapshotter{},
		clock:     clock.NewManual(opensAt.Add(time.Minute)),
	}
	logger := zerolog.New(io.Discard)
	h.svc = NewAdmissionService(Dependencies{
		Store:       h.store,
		Directory:   h.directory,
		Secrets:     fakeSecrets{password: "s3cret"},
		Notifier:    h.notifier,
		Snapshotter: h.snapshots,
		Clock:       h.clock,
		Window:      models.Window{Open: opensAt, Close: closesAt},
		Classifier:  earlybird.Default(),
	}, &logger)
	return h
}

func seat(id string) []models.Seat {
	return []models.Seat{{ID: id, Category: models.CategoryStandard, Price: models.StandardSeatPrice}}
}

var errBoom = errors.New("boom")
