package app

import (
	"context"
	"log"

	"github.com/eventra/eventra/internal/clock"
	"github.com/eventra/eventra/internal/domain"
)

// TicketLedger is the durable record of booking attempts and their status.
type TicketLedger interface {
	FindActive(ctx context.Context, eventID, attendeeID string) (*domain.Ticket, error)
	Create(ctx context.Context, ticket domain.Ticket) error
	Cancel(ctx context.Context, ticketID string) error
	GetByID(ctx context.Context, ticketID string) (domain.Ticket, error)
	ListByAttendee(ctx context.Context, attendeeID string) ([]domain.Ticket, error)
}

// EventInventory is the only sanctioned way to mutate an event's sold counter.
// TryReserve must be a single atomic conditional update at the storage layer;
// Release decrements floored at zero.
type EventInventory interface {
	TryReserve(ctx context.Context, eventID string) (domain.Event, error)
	Release(ctx context.Context, eventID string) error
}

// EventPublisher emits lifecycle messages for downstream consumers. Publishing
// is best effort; failures never roll back the booking state.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type BookingService struct {
	ledger    TicketLedger
	inventory EventInventory
	clock     clock.Clock
	pub       EventPublisher
	logger    *log.Logger
}

func NewBookingService(ledger TicketLedger, inventory EventInventory, clk clock.Clock, opts ...BookingServiceOption) *BookingService {
	svc := &BookingService{
		ledger:    ledger,
		inventory: inventory,
		clock:     clk,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type BookingServiceOption func(*BookingService)

// WithPublisher enables ticket lifecycle messages.
func WithPublisher(pub EventPublisher) BookingServiceOption {
	return func(s *BookingService) {
		s.pub = pub
	}
}

// WithBookingLogger overrides the default logger.
func WithBookingLogger(logger *log.Logger) BookingServiceOption {
	return func(s *BookingService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Book reserves one capacity slot and records an active ticket for the pair.
// The duplicate pre-check is a fast-fail only; the ledger's partial unique
// index on (event_id, attendee_id, status='active') is the actual guard, so a
// concurrent first-time duplicate loses at Create and the reserved slot is
// returned before the error propagates.
func (s *BookingService) Book(ctx context.Context, eventID, attendeeID string) (domain.Ticket, error) {
	if eventID == "" || attendeeID == "" {
		return domain.Ticket{}, domain.ErrInvalidID
	}

	existing, err := s.ledger.FindActive(ctx, eventID, attendeeID)
	if err != nil {
		return domain.Ticket{}, err
	}
	if existing != nil {
		return domain.Ticket{}, domain.ErrAlreadyBooked
	}

	if _, err := s.inventory.TryReserve(ctx, eventID); err != nil {
		return domain.Ticket{}, err
	}

	ticket := domain.Ticket{
		ID:          newID(),
		EventID:     eventID,
		AttendeeID:  attendeeID,
		Status:      domain.TicketStatusActive,
		BookingDate: s.clock.Now(),
	}

	if err := s.ledger.Create(ctx, ticket); err != nil {
		if relErr := s.inventory.Release(ctx, eventID); relErr != nil {
			s.logger.Printf("ERROR: release reservation for event %s after failed ticket create: %v", eventID, relErr)
		}
		return domain.Ticket{}, err
	}

	s.publish(ctx, "ticket.booked", ticket)
	return ticket, nil
}

// Cancel transitions an active ticket to cancelled and frees its capacity
// slot. The ledger update commits before the release: a crash between the two
// leaves the counter merely under-released, never a phantom free slot.
func (s *BookingService) Cancel(ctx context.Context, ticketID, attendeeID string) (domain.Ticket, error) {
	if ticketID == "" || attendeeID == "" {
		return domain.Ticket{}, domain.ErrInvalidID
	}

	ticket, err := s.ledger.GetByID(ctx, ticketID)
	if err != nil {
		return domain.Ticket{}, err
	}
	if ticket.AttendeeID != attendeeID {
		return domain.Ticket{}, domain.ErrNotAuthorized
	}
	if ticket.Status == domain.TicketStatusCancelled {
		return domain.Ticket{}, domain.ErrAlreadyCancelled
	}

	if err := s.ledger.Cancel(ctx, ticketID); err != nil {
		return domain.Ticket{}, err
	}

	if err := s.inventory.Release(ctx, ticket.EventID); err != nil {
		// The cancellation committed; an under-released counter is picked up
		// by reconciliation, so the caller still sees success.
		s.logger.Printf("ERROR: release capacity for event %s after cancelling ticket %s: %v", ticket.EventID, ticketID, err)
	}

	ticket.Status = domain.TicketStatusCancelled
	s.publish(ctx, "ticket.cancelled", ticket)
	return ticket, nil
}

// ListForAttendee returns all tickets, active and cancelled, for an attendee.
func (s *BookingService) ListForAttendee(ctx context.Context, attendeeID string) ([]domain.Ticket, error) {
	if attendeeID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.ledger.ListByAttendee(ctx, attendeeID)
}

func (s *BookingService) publish(ctx context.Context, routingKey string, ticket domain.Ticket) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, routingKey, ticket); err != nil {
		s.logger.Printf("WARN: publish %s for ticket %s: %v", routingKey, ticket.ID, err)
	}
}
