package domain

import "time"

type TicketStatus string

const (
	TicketStatusActive    TicketStatus = "active"
	TicketStatusCancelled TicketStatus = "cancelled"
)

// Ticket is one attendee's claim on one event slot. An attendee holds at most
// one active ticket per event; cancellation is one-way.
type Ticket struct {
	ID          string
	EventID     string
	AttendeeID  string
	Status      TicketStatus
	BookingDate time.Time
}
