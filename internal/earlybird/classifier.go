// Package earlybird decides which bookings earn early-bird status.
//
// Admission, resend and listing all share this classifier.
package earlybird

import (
	"sort"
	"strings"

	"ticketify/internal/models"
)

// Classifier assigns early-bird status to the first Cap standard-tier
// bookings by creation time.
type Classifier struct {
	Cap              int
	StandardPrice    float64
	StandardCategory string
}

// Default returns the classifier with the event's published rules.
func Default() Classifier {
	return Classifier{
		Cap:              models.DefaultEarlyBirdCap,
		StandardPrice:    models.StandardSeatPrice,
		StandardCategory: models.CategoryStandard,
	}
}

// IsStandard reports whether a booking counts toward the early-bird cap.
// A seat qualifies by category, by the standard list price, or by a zero
// price: verified bookings are stored with price 0, and older documents
// only carry one of the three markers.
func (c Classifier) IsStandard(b *models.Booking) bool {
	for _, s := range b.Seats {
		if strings.EqualFold(s.Category, c.StandardCategory) || s.Price == c.StandardPrice || s.Price == 0 {
			return true
		}
	}
	return false
}

// EarlyBirdIDs returns the ids of early-bird bookings. Bookings are ordered
// by CreatedAt; equal timestamps keep their position in the document.
func (c Classifier) EarlyBirdIDs(bookings []models.Booking) map[string]bool {
	order := make([]int, len(bookings))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return bookings[order[i]].CreatedAt.Before(bookings[order[j]].CreatedAt)
	})

	ids := make(map[string]bool, c.Cap)
	count := 0
	for _, idx := range order {
		if count >= c.Cap {
			break
		}
		b := &bookings[idx]
		if c.IsStandard(b) {
			ids[b.ID] = true
			count++
		}
	}
	return ids
}

// IsEarlyBird reports whether the booking with targetID is an early bird.
func (c Classifier) IsEarlyBird(bookings []models.Booking, targetID string) bool {
	return c.EarlyBirdIDs(bookings)[targetID]
}

// Annotate returns a copy of bookings with IsEarlyBird recomputed.
func (c Classifier) Annotate(bookings []models.Booking) []models.Booking {
	ids := c.EarlyBirdIDs(bookings)
	out := make([]models.Booking, len(bookings))
	copy(out, bookings)
	for i := range out {
		out[i].IsEarlyBird = ids[out[i].ID]
	}
	return out
}
