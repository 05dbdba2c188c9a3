package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Seat is one selectable slot on the seat map.
type Seat struct {
	ID       string  `json:"id" validate:"required"`
	Label    string  `json:"label,omitempty"`
	Category string  `json:"type"`
	Price    float64 `json:"price"`
	Row      string  `json:"row,omitempty"`
	Col      int     `json:"col,omitempty"`
}

// User is the identity snapshot taken at booking time.
type User struct {
	Name        string `json:"name"`
	MemberID    string `json:"memberId"`
	PhoneNumber string `json:"phoneNumber"`
}

// UnmarshalJSON also accepts the legacy employeeId key.
func (u *User) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name        string `json:"name"`
		MemberID    string `json:"memberId"`
		EmployeeID  string `json:"employeeId"`
		PhoneNumber string `json:"phoneNumber"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	u.Name = raw.Name
	u.MemberID = raw.MemberID
	if u.MemberID == "" {
		u.MemberID = raw.EmployeeID
	}
	u.PhoneNumber = raw.PhoneNumber
	return nil
}

type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// Booking is the unit of persisted state. IsEarlyBird is a cache; the
// classifier recomputes it from the full history.
type Booking struct {
	ID             string         `json:"id"`
	CreatedAt      time.Time      `json:"createdAt"`
	User           User           `json:"user"`
	Seats          []Seat         `json:"seats"`
	DeliveryStatus DeliveryStatus `json:"deliveryStatus"`
	IsEarlyBird    bool           `json:"isEarlyBird"`
}

// UnmarshalJSON accepts documents written with the legacy date/chatStatus keys.
func (b *Booking) UnmarshalJSON(data []byte) error {
	type plain Booking
	var raw struct {
		plain
		Date       *time.Time     `json:"date"`
		ChatStatus DeliveryStatus `json:"chatStatus"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Booking(raw.plain)
	if b.CreatedAt.IsZero() && raw.Date != nil {
		b.CreatedAt = *raw.Date
	}
	if b.DeliveryStatus == "" {
		b.DeliveryStatus = raw.ChatStatus
	}
	if b.DeliveryStatus == "" {
		b.DeliveryStatus = DeliveryPending
	}
	return nil
}

// SeatIDs returns the seat ids in selection order.
func (b *Booking) SeatIDs() []string {
	ids := make([]string, 0, len(b.Seats))
	for _, s := range b.Seats {
		ids = append(ids, s.ID)
	}
	return ids
}

// SeatRef is the human-facing seat reference, e.g. "CAT1-3, CAT1-4".
func (b *Booking) SeatRef() string {
	return strings.Join(b.SeatIDs(), ", ")
}

// Window is the half-open admission interval [Open, Close).
type Window struct {
	Open  time.Time
	Close time.Time
}
