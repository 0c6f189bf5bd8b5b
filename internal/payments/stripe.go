package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/eventra/eventra/internal/app"
	"github.com/eventra/eventra/internal/domain"
)

// StripeProvider adapts the Stripe SDK to the app.PaymentProvider contract.
// All provider wire-format knowledge stays in this package.
type StripeProvider struct {
	webhookSecret string
}

func NewStripeProvider(apiKey, webhookSecret string) *StripeProvider {
	stripe.Key = apiKey
	return &StripeProvider{webhookSecret: webhookSecret}
}

// VerifyEvent checks the webhook signature and, for successful payments,
// lifts the correlation metadata off the intent. Verification failures fail
// closed: the payload is never interpreted.
func (p *StripeProvider) VerifyEvent(payload []byte, signature string) (app.ProviderEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return app.ProviderEvent{}, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}

	out := app.ProviderEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}

	if event.Type == stripe.EventTypePaymentIntentSucceeded {
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return app.ProviderEvent{}, fmt.Errorf("decode payment intent: %w", err)
		}
		out.Metadata = intent.Metadata
	}

	return out, nil
}

func (p *StripeProvider) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (app.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amountCents),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		return app.PaymentIntent{}, fmt.Errorf("create payment intent: %w", err)
	}
	return app.PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}
