package models

import "time"

const (
	CategoryStandard = "STANDARD"
	CategoryVIP      = "VIP"
)

const (
	// StandardSeatPrice is the list price of a standard seat before
	// verification zeroes it.
	StandardSeatPrice = 20

	// DefaultEarlyBirdCap is the number of standard bookings that earn
	// early-bird status.
	DefaultEarlyBirdCap = 10

	// DefaultNotifyTimeout bounds a single outbound notification.
	DefaultNotifyTimeout = 10 * time.Second

	// DefaultAttemptLimit is the number of verify/submit calls a client may
	// make per DefaultAttemptWindow.
	DefaultAttemptLimit  = 30
	DefaultAttemptWindow = time.Minute
)

const (
	ErrorCodeAlreadyBooked = "ALREADY_BOOKED"
	ErrorCodeSeatConflict  = "SEAT_CONFLICT"
)
