package database

import (
	"context"
	"encoding/json"
	"fmt"

	"ticketify/internal/models"
)

// LoadBookings returns the booking document in commit order. A missing
// document is an empty store.
func (db *DB) LoadBookings(ctx context.Context) ([]models.Booking, error) {
	body, err := db.readDocument(ctx, DocBookings)
	if err != nil {
		return nil, err
	}
	return decodeBookings(body)
}

// SaveBookings replaces the booking document.
func (db *DB) SaveBookings(ctx context.Context, bookings []models.Booking) error {
	body, err := encodeBookings(bookings)
	if err != nil {
		return err
	}
	return db.writeDocument(ctx, DocBookings, body)
}

func decodeBookings(body []byte) ([]models.Booking, error) {
	if len(body) == 0 {
		return []models.Booking{}, nil
	}
	var bookings []models.Booking
	if err := json.Unmarshal(body, &bookings); err != nil {
		return nil, fmt.Errorf("decode bookings: %w", err)
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, nil
}

func encodeBookings(bookings []models.Booking) ([]byte, error) {
	if bookings == nil {
		bookings = []models.Booking{}
	}
	body, err := json.MarshalIndent(bookings, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode bookings: %w", err)
	}
	return body, nil
}
