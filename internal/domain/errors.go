package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoSeats              = errors.New("at least one seat is required")
	ErrNotEligible          = errors.New("identity not found in member directory")
	ErrNotYetOpen           = errors.New("booking is not open yet")
	ErrClosed               = errors.New("booking is closed")
	ErrAlreadyBooked        = errors.New("member already has a booking")
	ErrSeatConflict         = errors.New("one or more seats are already booked")
	ErrDeliveryFailed       = errors.New("notification delivery failed")
	ErrStoreUnavailable     = errors.New("booking store unavailable")
	ErrConfig               = errors.New("server configuration error")
	ErrForbidden            = errors.New("wrong password")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrIdentityUnverifiable = errors.New("booking identity no longer verifiable")
	ErrTooManyAttempts      = errors.New("too many attempts")
)

// AlreadyBookedError carries the seat reference of the requester's existing
// booking.
type AlreadyBookedError struct {
	BookingID string
	SeatRef   string
}

func (e *AlreadyBookedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAlreadyBooked, e.SeatRef)
}

func (e *AlreadyBookedError) Is(target error) bool {
	return target == ErrAlreadyBooked
}
