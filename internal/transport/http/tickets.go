package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/eventra/eventra/internal/domain"
)

// TicketBooker is the minimal interface needed to book a ticket.
type TicketBooker interface {
	Book(ctx context.Context, eventID, attendeeID string) (domain.Ticket, error)
}

// TicketCanceller is the minimal interface needed to cancel a ticket.
type TicketCanceller interface {
	Cancel(ctx context.Context, ticketID, attendeeID string) (domain.Ticket, error)
}

// TicketLister is the minimal interface needed to list an attendee's tickets.
type TicketLister interface {
	ListForAttendee(ctx context.Context, attendeeID string) ([]domain.Ticket, error)
}

type bookTicketRequest struct {
	EventID string `json:"event_id"`
}

type cancelTicketRequest struct {
	TicketID string `json:"ticket_id"`
}

type ticketResponse struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	AttendeeID  string    `json:"attendee_id"`
	Status      string    `json:"status"`
	BookingDate time.Time `json:"booking_date"`
}

func toTicketResponse(t domain.Ticket) ticketResponse {
	return ticketResponse{
		ID:          t.ID,
		EventID:     t.EventID,
		AttendeeID:  t.AttendeeID,
		Status:      string(t.Status),
		BookingDate: t.BookingDate,
	}
}

// HandleBookTicket returns a POST handler booking a ticket for the
// authenticated attendee.
func HandleBookTicket(svc TicketBooker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "authorization required")
			return
		}

		var req bookTicketRequest
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

		ticket, err := svc.Book(r.Context(), req.EventID, claims.UserID)
		if err != nil {
			writeBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toTicketResponse(ticket))
	}
}

// HandleCancelTicket returns a POST handler cancelling one of the
// authenticated attendee's tickets.
func HandleCancelTicket(svc TicketCanceller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "authorization required")
			return
		}

		var req cancelTicketRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.TicketID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, "ticket_id is required")
			return
		}

		ticket, err := svc.Cancel(r.Context(), req.TicketID, claims.UserID)
		if err != nil {
			writeBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toTicketResponse(ticket))
	}
}

// HandleMyTickets returns a GET handler listing the authenticated attendee's
// tickets, cancelled ones included.
func HandleMyTickets(svc TicketLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "authorization required")
			return
		}

		tickets, err := svc.ListForAttendee(r.Context(), claims.UserID)
		if err != nil {
			writeBookingError(w, err)
			return
		}

		out := make([]ticketResponse, 0, len(tickets))
		for _, t := range tickets {
			out = append(out, toTicketResponse(t))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrEventNotFound):
		writeError(w, http.StatusNotFound, codeEventNotFound, err.Error())
	case errors.Is(err, domain.ErrTicketNotFound):
		writeError(w, http.StatusNotFound, codeTicketNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyBooked):
		writeError(w, http.StatusConflict, codeAlreadyBooked, err.Error())
	case errors.Is(err, domain.ErrSoldOut):
		writeError(w, http.StatusConflict, codeSoldOut, err.Error())
	case errors.Is(err, domain.ErrAlreadyCancelled):
		writeError(w, http.StatusConflict, codeAlreadyCancelled, err.Error())
	case errors.Is(err, domain.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
