package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/eventra/eventra/internal/app"
	"github.com/eventra/eventra/internal/domain"
)

const signatureHeader = "Stripe-Signature"
const maxWebhookBody = 1 << 16

// IntentCreator is the minimal interface needed to start a payment.
type IntentCreator interface {
	CreateIntent(ctx context.Context, eventID, attendeeID string) (app.PaymentIntent, error)
}

// WebhookProcessor is the minimal interface needed to reconcile a payment
// notification.
type WebhookProcessor interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type createIntentRequest struct {
	EventID string `json:"event_id"`
}

type createIntentResponse struct {
	ClientSecret string `json:"client_secret"`
}

// HandleCreatePaymentIntent returns a POST handler starting a payment for the
// authenticated attendee.
func HandleCreatePaymentIntent(svc IntentCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "authorization required")
			return
		}

		var req createIntentRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.EventID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, "event_id is required")
			return
		}

		intent, err := svc.CreateIntent(r.Context(), req.EventID, claims.UserID)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidID):
				writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
			case errors.Is(err, domain.ErrEventNotFound):
				writeError(w, http.StatusNotFound, codeEventNotFound, err.Error())
			case errors.Is(err, domain.ErrFreeEvent):
				writeError(w, http.StatusBadRequest, codeFreeEvent, err.Error())
			case errors.Is(err, domain.ErrSoldOut):
				writeError(w, http.StatusConflict, codeSoldOut, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
			}
			return
		}

		writeJSON(w, http.StatusOK, createIntentResponse{ClientSecret: intent.ClientSecret})
	}
}

// HandleWebhook returns the POST handler for payment-provider notifications.
// Reconciliation failures are acknowledged with 200: the payment already
// happened and a redelivery cannot fix a sold-out or deleted event, so the
// failure is logged for the refund workflow instead of bouncing the provider.
func HandleWebhook(svc WebhookProcessor, logger *log.Logger) http.HandlerFunc {
	if logger == nil {
		logger = log.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		signature := r.Header.Get(signatureHeader)
		if signature == "" {
			writeError(w, http.StatusBadRequest, codeInvalidSignature, "missing signature header")
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "unreadable payload")
			return
		}

		err = svc.HandleWebhook(r.Context(), payload, signature)
		var recErr *domain.ReconciliationError
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		case errors.Is(err, domain.ErrInvalidSignature):
			writeError(w, http.StatusBadRequest, codeInvalidSignature, domain.ErrInvalidSignature.Error())
		case errors.As(err, &recErr):
			logger.Printf("webhook acknowledged with reconciliation failure: %v", recErr)
			writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		default:
			writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		}
	}
}
