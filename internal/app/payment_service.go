package app

import (
	"context"
	"errors"
	"log"

	"github.com/eventra/eventra/internal/domain"
)

const providerEventPaymentSucceeded = "payment_intent.succeeded"

// Metadata keys the payment provider carries to correlate a transaction back
// to a booking. Set on intent creation, read back off the webhook.
const (
	metadataEventID = "eventId"
	metadataUserID  = "userId"
)

// ProviderEvent is a verified notification from the payment provider. The
// core never parses provider wire formats; the provider client hands over
// only what reconciliation needs.
type ProviderEvent struct {
	ID       string
	Type     string
	Metadata map[string]string
}

// PaymentIntent is the client-facing handle for a pending payment.
type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// PaymentProvider wraps the external payment service. VerifyEvent fails
// closed with domain.ErrInvalidSignature when the payload cannot be proven to
// originate from the provider.
type PaymentProvider interface {
	VerifyEvent(payload []byte, signature string) (ProviderEvent, error)
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (PaymentIntent, error)
}

// Booker is the slice of the booking coordinator the reconciler drives.
type Booker interface {
	Book(ctx context.Context, eventID, attendeeID string) (domain.Ticket, error)
}

// EventGetter exposes event lookup for intent creation.
type EventGetter interface {
	GetByID(ctx context.Context, eventID string) (domain.Event, error)
}

// DeliveryLog remembers processed provider event IDs so replayed webhook
// deliveries can be short-circuited. It is an optimization: when the log is
// unavailable the coordinator's own idempotency still holds.
type DeliveryLog interface {
	Seen(ctx context.Context, providerEventID string) (bool, error)
	Record(ctx context.Context, providerEventID string) error
}

type PaymentService struct {
	provider PaymentProvider
	booker   Booker
	events   EventGetter
	currency string
	dedup    DeliveryLog
	pub      EventPublisher
	logger   *log.Logger
}

func NewPaymentService(provider PaymentProvider, booker Booker, events EventGetter, opts ...PaymentServiceOption) *PaymentService {
	svc := &PaymentService{
		provider: provider,
		booker:   booker,
		events:   events,
		currency: "usd",
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type PaymentServiceOption func(*PaymentService)

// WithDeliveryLog enables webhook delivery dedup.
func WithDeliveryLog(dedup DeliveryLog) PaymentServiceOption {
	return func(s *PaymentService) {
		s.dedup = dedup
	}
}

// WithOpsPublisher enables unreconciled-payment messages for operators.
func WithOpsPublisher(pub EventPublisher) PaymentServiceOption {
	return func(s *PaymentService) {
		s.pub = pub
	}
}

// WithCurrency overrides the default intent currency.
func WithCurrency(currency string) PaymentServiceOption {
	return func(s *PaymentService) {
		if currency != "" {
			s.currency = currency
		}
	}
}

// WithPaymentLogger overrides the default logger.
func WithPaymentLogger(logger *log.Logger) PaymentServiceOption {
	return func(s *PaymentService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// CreateIntent asks the provider for a payment intent carrying the
// (event, attendee) correlation metadata. Free and sold-out events are
// rejected up front; the availability check here is advisory, the webhook
// path re-runs the authoritative reservation.
func (s *PaymentService) CreateIntent(ctx context.Context, eventID, attendeeID string) (PaymentIntent, error) {
	if eventID == "" || attendeeID == "" {
		return PaymentIntent{}, domain.ErrInvalidID
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return PaymentIntent{}, err
	}
	if event.Free() {
		return PaymentIntent{}, domain.ErrFreeEvent
	}
	if event.Remaining() <= 0 {
		return PaymentIntent{}, domain.ErrSoldOut
	}

	metadata := map[string]string{
		metadataEventID: eventID,
		metadataUserID:  attendeeID,
	}
	return s.provider.CreateIntent(ctx, event.PriceCents, s.currency, metadata)
}

// HandleWebhook turns a verified payment-succeeded notification into exactly
// one booking. Deliveries are at-least-once: a redelivery that lands as
// ErrAlreadyBooked is a successful no-op. A payment that can no longer be
// honored (sold out, event gone) is classified as a ReconciliationError so a
// refund workflow can pick it up; retrying the delivery cannot help.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.provider.VerifyEvent(payload, signature)
	if err != nil {
		return err
	}

	if event.Type != providerEventPaymentSucceeded {
		s.logger.Printf("ignoring provider event %s type=%s", event.ID, event.Type)
		return nil
	}

	eventID := event.Metadata[metadataEventID]
	attendeeID := event.Metadata[metadataUserID]
	if eventID == "" || attendeeID == "" {
		s.logger.Printf("WARN: provider event %s missing booking metadata, acknowledging", event.ID)
		return nil
	}

	if s.dedup != nil {
		seen, err := s.dedup.Seen(ctx, event.ID)
		if err != nil {
			s.logger.Printf("WARN: delivery log unavailable for event %s: %v", event.ID, err)
		} else if seen {
			return nil
		}
	}

	_, bookErr := s.booker.Book(ctx, eventID, attendeeID)
	switch {
	case bookErr == nil:
		s.record(ctx, event.ID)
		return nil
	case errors.Is(bookErr, domain.ErrAlreadyBooked):
		// An earlier delivery completed the booking.
		s.record(ctx, event.ID)
		return nil
	case errors.Is(bookErr, domain.ErrSoldOut), errors.Is(bookErr, domain.ErrEventNotFound):
		recErr := &domain.ReconciliationError{
			ProviderEventID: event.ID,
			EventID:         eventID,
			AttendeeID:      attendeeID,
			Err:             bookErr,
		}
		s.record(ctx, event.ID)
		s.reportUnreconciled(ctx, recErr)
		return recErr
	default:
		// Transient storage failure: leave the delivery unrecorded so the
		// provider's retry gets another attempt.
		return bookErr
	}
}

func (s *PaymentService) record(ctx context.Context, providerEventID string) {
	if s.dedup == nil {
		return
	}
	if err := s.dedup.Record(ctx, providerEventID); err != nil {
		s.logger.Printf("WARN: record delivery %s: %v", providerEventID, err)
	}
}

func (s *PaymentService) reportUnreconciled(ctx context.Context, recErr *domain.ReconciliationError) {
	s.logger.Printf("ERROR: %v", recErr)
	if s.pub == nil {
		return
	}
	payload := map[string]string{
		"provider_event_id": recErr.ProviderEventID,
		"event_id":          recErr.EventID,
		"attendee_id":       recErr.AttendeeID,
		"reason":            recErr.Err.Error(),
	}
	if err := s.pub.Publish(ctx, "ops.payment_unreconciled", payload); err != nil {
		s.logger.Printf("WARN: publish unreconciled payment %s: %v", recErr.ProviderEventID, err)
	}
}
