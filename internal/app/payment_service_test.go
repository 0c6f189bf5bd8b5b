package app

import (
	"context"
	"errors"
	"testing"

	"github.com/eventra/eventra/internal/domain"
)

func TestPaymentService_CreateIntent(t *testing.T) {
	t.Parallel()

	t.Run("creates an intent with booking metadata", func(t *testing.T) {
		provider := &fakeProvider{
			intent: PaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret"},
		}
		events := &fakeEventGetter{event: domain.Event{
			ID: "event-1", Capacity: 10, Sold: 2, PriceCents: 2500,
		}}
		svc := NewPaymentService(provider, &fakeBooker{}, events, WithCurrency("eur"))

		intent, err := svc.CreateIntent(context.Background(), "event-1", "attendee-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if intent.ClientSecret != "pi_1_secret" {
			t.Fatalf("expected client secret, got %q", intent.ClientSecret)
		}
		if provider.gotAmount != 2500 {
			t.Fatalf("expected amount 2500, got %d", provider.gotAmount)
		}
		if provider.gotCurrency != "eur" {
			t.Fatalf("expected currency eur, got %q", provider.gotCurrency)
		}
		if provider.gotMetadata["eventId"] != "event-1" || provider.gotMetadata["userId"] != "attendee-1" {
			t.Fatalf("expected correlation metadata, got %v", provider.gotMetadata)
		}
	})

	t.Run("rejects free events", func(t *testing.T) {
		events := &fakeEventGetter{event: domain.Event{ID: "event-1", Capacity: 10, PriceCents: 0}}
		svc := NewPaymentService(&fakeProvider{}, &fakeBooker{}, events)

		if _, err := svc.CreateIntent(context.Background(), "event-1", "attendee-1"); !errors.Is(err, domain.ErrFreeEvent) {
			t.Fatalf("expected ErrFreeEvent, got %v", err)
		}
	})

	t.Run("rejects sold-out events", func(t *testing.T) {
		events := &fakeEventGetter{event: domain.Event{ID: "event-1", Capacity: 5, Sold: 5, PriceCents: 1000}}
		svc := NewPaymentService(&fakeProvider{}, &fakeBooker{}, events)

		if _, err := svc.CreateIntent(context.Background(), "event-1", "attendee-1"); !errors.Is(err, domain.ErrSoldOut) {
			t.Fatalf("expected ErrSoldOut, got %v", err)
		}
	})

	t.Run("missing event", func(t *testing.T) {
		events := &fakeEventGetter{err: domain.ErrEventNotFound}
		svc := NewPaymentService(&fakeProvider{}, &fakeBooker{}, events)

		if _, err := svc.CreateIntent(context.Background(), "event-1", "attendee-1"); !errors.Is(err, domain.ErrEventNotFound) {
			t.Fatalf("expected ErrEventNotFound, got %v", err)
		}
	})
}

func TestPaymentService_HandleWebhook(t *testing.T) {
	t.Parallel()

	succeeded := ProviderEvent{
		ID:   "evt_1",
		Type: "payment_intent.succeeded",
		Metadata: map[string]string{
			"eventId": "event-1",
			"userId":  "attendee-1",
		},
	}

	t.Run("books exactly one ticket for a verified payment", func(t *testing.T) {
		booker := &fakeBooker{}
		dedup := newFakeDeliveryLog()
		svc := NewPaymentService(&fakeProvider{event: succeeded}, booker, &fakeEventGetter{}, WithDeliveryLog(dedup))

		if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if booker.calls != 1 {
			t.Fatalf("expected 1 booking call, got %d", booker.calls)
		}
		if booker.gotEventID != "event-1" || booker.gotAttendeeID != "attendee-1" {
			t.Fatalf("booked wrong pair: %s/%s", booker.gotEventID, booker.gotAttendeeID)
		}
		if !dedup.recorded["evt_1"] {
			t.Fatalf("expected delivery recorded")
		}
	})

	t.Run("rejects an unverifiable payload", func(t *testing.T) {
		provider := &fakeProvider{verifyErr: domain.ErrInvalidSignature}
		booker := &fakeBooker{}
		svc := NewPaymentService(provider, booker, &fakeEventGetter{})

		err := svc.HandleWebhook(context.Background(), []byte("{}"), "bad")
		if !errors.Is(err, domain.ErrInvalidSignature) {
			t.Fatalf("expected ErrInvalidSignature, got %v", err)
		}
		if booker.calls != 0 {
			t.Fatalf("expected no booking call, got %d", booker.calls)
		}
	})

	t.Run("redelivery that hits an existing booking is a no-op", func(t *testing.T) {
		booker := &fakeBooker{err: domain.ErrAlreadyBooked}
		dedup := newFakeDeliveryLog()
		svc := NewPaymentService(&fakeProvider{event: succeeded}, booker, &fakeEventGetter{}, WithDeliveryLog(dedup))

		if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
			t.Fatalf("expected no error on redelivery, got %v", err)
		}
		if !dedup.recorded["evt_1"] {
			t.Fatalf("expected delivery recorded")
		}
	})

	t.Run("seen delivery short-circuits before booking", func(t *testing.T) {
		booker := &fakeBooker{}
		dedup := newFakeDeliveryLog()
		dedup.recorded["evt_1"] = true
		svc := NewPaymentService(&fakeProvider{event: succeeded}, booker, &fakeEventGetter{}, WithDeliveryLog(dedup))

		if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if booker.calls != 0 {
			t.Fatalf("expected no booking call, got %d", booker.calls)
		}
	})

	t.Run("broken delivery log falls through to the booking", func(t *testing.T) {
		booker := &fakeBooker{}
		dedup := newFakeDeliveryLog()
		dedup.seenErr = errors.New("redis down")
		svc := NewPaymentService(&fakeProvider{event: succeeded}, booker, &fakeEventGetter{}, WithDeliveryLog(dedup))

		if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if booker.calls != 1 {
			t.Fatalf("expected booking despite log failure, got %d calls", booker.calls)
		}
	})

	t.Run("paid-for sold-out event is a reconciliation failure", func(t *testing.T) {
		booker := &fakeBooker{err: domain.ErrSoldOut}
		dedup := newFakeDeliveryLog()
		pub := &fakePublisher{}
		svc := NewPaymentService(&fakeProvider{event: succeeded}, booker, &fakeEventGetter{},
			WithDeliveryLog(dedup), WithOpsPublisher(pub))

		err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
		var recErr *domain.ReconciliationError
		if !errors.As(err, &recErr) {
			t.Fatalf("expected ReconciliationError, got %v", err)
		}
		if recErr.ProviderEventID != "evt_1" || recErr.EventID != "event-1" || recErr.AttendeeID != "attendee-1" {
			t.Fatalf("unexpected reconciliation detail: %+v", recErr)
		}
		if !errors.Is(err, domain.ErrSoldOut) {
			t.Fatalf("expected wrapped ErrSoldOut, got %v", err)
		}
		if !dedup.recorded["evt_1"] {
			t.Fatalf("expected delivery recorded so retries do not repeat the failure")
		}
		if len(pub.published) != 1 || pub.published[0].key != "ops.payment_unreconciled" {
			t.Fatalf("expected ops message, got %+v", pub.published)
		}
	})

	t.Run("deleted event after payment is a reconciliation failure", func(t *testing.T) {
		booker := &fakeBooker{err: domain.ErrEventNotFound}
		svc := NewPaymentService(&fakeProvider{event: succeeded}, booker, &fakeEventGetter{})

		err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
		var recErr *domain.ReconciliationError
		if !errors.As(err, &recErr) {
			t.Fatalf("expected ReconciliationError, got %v", err)
		}
	})

	t.Run("transient booking failure is retryable and unrecorded", func(t *testing.T) {
		storageErr := errors.New("connection reset")
		booker := &fakeBooker{err: storageErr}
		dedup := newFakeDeliveryLog()
		svc := NewPaymentService(&fakeProvider{event: succeeded}, booker, &fakeEventGetter{}, WithDeliveryLog(dedup))

		err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
		if !errors.Is(err, storageErr) {
			t.Fatalf("expected the storage error back, got %v", err)
		}
		var recErr *domain.ReconciliationError
		if errors.As(err, &recErr) {
			t.Fatalf("transient failure must not be classified as reconciliation failure")
		}
		if dedup.recorded["evt_1"] {
			t.Fatalf("transient failure must leave the delivery unrecorded")
		}
	})

	t.Run("ignores other provider event types", func(t *testing.T) {
		provider := &fakeProvider{event: ProviderEvent{ID: "evt_2", Type: "payment_intent.created"}}
		booker := &fakeBooker{}
		svc := NewPaymentService(provider, booker, &fakeEventGetter{})

		if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if booker.calls != 0 {
			t.Fatalf("expected no booking call, got %d", booker.calls)
		}
	})

	t.Run("acknowledges events without booking metadata", func(t *testing.T) {
		provider := &fakeProvider{event: ProviderEvent{ID: "evt_3", Type: "payment_intent.succeeded"}}
		booker := &fakeBooker{}
		svc := NewPaymentService(provider, booker, &fakeEventGetter{})

		if err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if booker.calls != 0 {
			t.Fatalf("expected no booking call, got %d", booker.calls)
		}
	})
}

type fakeProvider struct {
	event     ProviderEvent
	verifyErr error

	intent      PaymentIntent
	intentErr   error
	gotAmount   int64
	gotCurrency string
	gotMetadata map[string]string
}

func (f *fakeProvider) VerifyEvent(_ []byte, _ string) (ProviderEvent, error) {
	if f.verifyErr != nil {
		return ProviderEvent{}, f.verifyErr
	}
	return f.event, nil
}

func (f *fakeProvider) CreateIntent(_ context.Context, amountCents int64, currency string, metadata map[string]string) (PaymentIntent, error) {
	f.gotAmount = amountCents
	f.gotCurrency = currency
	f.gotMetadata = metadata
	if f.intentErr != nil {
		return PaymentIntent{}, f.intentErr
	}
	return f.intent, nil
}

type fakeBooker struct {
	err           error
	calls         int
	gotEventID    string
	gotAttendeeID string
}

func (f *fakeBooker) Book(_ context.Context, eventID, attendeeID string) (domain.Ticket, error) {
	f.calls++
	f.gotEventID = eventID
	f.gotAttendeeID = attendeeID
	if f.err != nil {
		return domain.Ticket{}, f.err
	}
	return domain.Ticket{ID: "ticket-1", EventID: eventID, AttendeeID: attendeeID, Status: domain.TicketStatusActive}, nil
}

type fakeEventGetter struct {
	event domain.Event
	err   error
}

func (f *fakeEventGetter) GetByID(_ context.Context, _ string) (domain.Event, error) {
	if f.err != nil {
		return domain.Event{}, f.err
	}
	return f.event, nil
}

type fakeDeliveryLog struct {
	recorded  map[string]bool
	seenErr   error
	recordErr error
}

func newFakeDeliveryLog() *fakeDeliveryLog {
	return &fakeDeliveryLog{recorded: make(map[string]bool)}
}

func (f *fakeDeliveryLog) Seen(_ context.Context, id string) (bool, error) {
	if f.seenErr != nil {
		return false, f.seenErr
	}
	return f.recorded[id], nil
}

func (f *fakeDeliveryLog) Record(_ context.Context, id string) error {
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded[id] = true
	return nil
}
