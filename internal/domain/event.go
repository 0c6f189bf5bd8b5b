package domain

import "time"

// Event is a bookable occasion with a fixed ticket capacity. Sold is mutated
// only through the inventory's atomic reserve/release operations.
type Event struct {
	ID          string
	OrganizerID string
	Title       string
	Description string
	Venue       string
	Category    string
	StartsAt    time.Time
	Capacity    int
	Sold        int
	PriceCents  int64
	CreatedAt   time.Time
}

// Remaining reports how many tickets are still available.
func (e Event) Remaining() int {
	return e.Capacity - e.Sold
}

// Free reports whether booking requires no payment.
func (e Event) Free() bool {
	return e.PriceCents == 0
}
