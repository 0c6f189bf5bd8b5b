package http

import (
	"log"
	"net/http"

	"github.com/eventra/eventra/internal/domain"
)

// UserHandlers is the full account surface the router wires up.
type UserHandlers interface {
	UserRegistrar
	UserAuthenticator
	ProfileGetter
}

// BookingHandlers is the full ticket surface the router wires up.
type BookingHandlers interface {
	TicketBooker
	TicketCanceller
	TicketLister
}

// PaymentHandlers is the full payment surface the router wires up.
type PaymentHandlers interface {
	IntentCreator
	WebhookProcessor
}

// Services bundles everything the router needs. Payments may be nil, in which
// case the payment routes are not registered.
type Services struct {
	Users    UserHandlers
	Events   EventsService
	Bookings BookingHandlers
	Payments PaymentHandlers
}

// NewHandler assembles the full route table with auth, CORS, and request
// logging applied.
func NewHandler(svcs Services, verifier TokenVerifier, corsOrigins []string, logger *log.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", HealthHandler)

	mux.Handle("POST /register", HandleRegister(svcs.Users))
	mux.Handle("POST /login", HandleLogin(svcs.Users))
	mux.Handle("GET /users/{id}", HandleProfile(svcs.Users))

	mux.Handle("GET /events", HandleListEvents(svcs.Events))
	mux.Handle("GET /events/{id}", HandleGetEvent(svcs.Events))
	mux.Handle("POST /events", organizerOnly(verifier, HandleCreateEvent(svcs.Events)))
	mux.Handle("PUT /events/{id}", organizerOnly(verifier, HandleUpdateEvent(svcs.Events)))
	mux.Handle("DELETE /events/{id}", organizerOnly(verifier, HandleDeleteEvent(svcs.Events)))
	mux.Handle("GET /organizer/events", organizerOnly(verifier, HandleOrganizerEvents(svcs.Events)))

	mux.Handle("POST /tickets/book", attendeeOnly(verifier, HandleBookTicket(svcs.Bookings)))
	mux.Handle("POST /tickets/cancel", attendeeOnly(verifier, HandleCancelTicket(svcs.Bookings)))
	mux.Handle("GET /tickets/my", attendeeOnly(verifier, HandleMyTickets(svcs.Bookings)))

	if svcs.Payments != nil {
		mux.Handle("POST /payments/create-payment-intent", Authenticate(verifier, HandleCreatePaymentIntent(svcs.Payments)))
		mux.Handle("POST /webhook", HandleWebhook(svcs.Payments, logger))
	}

	mux.Handle("/", NotFoundHandler())

	return RequestLogger(CORS(corsOrigins, mux), logger)
}

func organizerOnly(verifier TokenVerifier, next http.Handler) http.Handler {
	return Authenticate(verifier, RequireRole(domain.RoleOrganizer, next))
}

func attendeeOnly(verifier TokenVerifier, next http.Handler) http.Handler {
	return Authenticate(verifier, RequireRole(domain.RoleAttendee, next))
}
