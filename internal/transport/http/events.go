package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/eventra/eventra/internal/app"
	"github.com/eventra/eventra/internal/domain"
)

// EventsService is the event-management surface the handlers need.
type EventsService interface {
	CreateEvent(ctx context.Context, in app.CreateEventInput) (domain.Event, error)
	UpdateEvent(ctx context.Context, eventID, organizerID string, in app.UpdateEventInput) (domain.Event, error)
	DeleteEvent(ctx context.Context, eventID, organizerID string) error
	GetEvent(ctx context.Context, eventID string) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
	ListByOrganizer(ctx context.Context, organizerID string) ([]domain.Event, error)
}

type createEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Venue       string    `json:"venue"`
	Category    string    `json:"category"`
	StartsAt    time.Time `json:"starts_at"`
	Capacity    int       `json:"capacity"`
	PriceCents  int64     `json:"price_cents"`
}

type updateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Venue       *string    `json:"venue"`
	Category    *string    `json:"category"`
	StartsAt    *time.Time `json:"starts_at"`
	Capacity    *int       `json:"capacity"`
	PriceCents  *int64     `json:"price_cents"`
}

type eventResponse struct {
	ID          string    `json:"id"`
	OrganizerID string    `json:"organizer_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Venue       string    `json:"venue"`
	Category    string    `json:"category"`
	StartsAt    time.Time `json:"starts_at"`
	Capacity    int       `json:"capacity"`
	Sold        int       `json:"sold"`
	PriceCents  int64     `json:"price_cents"`
}

func toEventResponse(e domain.Event) eventResponse {
	return eventResponse{
		ID:          e.ID,
		OrganizerID: e.OrganizerID,
		Title:       e.Title,
		Description: e.Description,
		Venue:       e.Venue,
		Category:    e.Category,
		StartsAt:    e.StartsAt,
		Capacity:    e.Capacity,
		Sold:        e.Sold,
		PriceCents:  e.PriceCents,
	}
}

// HandleListEvents returns a public GET handler listing all events.
func HandleListEvents(svc EventsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := svc.ListEvents(r.Context())
		if err != nil {
			writeEventError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toEventResponses(events))
	}
}

// HandleGetEvent returns a public GET handler for a single event.
func HandleGetEvent(svc EventsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, err := svc.GetEvent(r.Context(), r.PathValue("id"))
		if err != nil {
			writeEventError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toEventResponse(event))
	}
}

// HandleCreateEvent returns a POST handler creating an event owned by the
// authenticated organizer.
func HandleCreateEvent(svc EventsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "authorization required")
			return
		}

		var req createEventRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.StartsAt.IsZero() {
			writeError(w, http.StatusBadRequest, codeInvalidStartsAt, "starts_at is required")
			return
		}

		event, err := svc.CreateEvent(r.Context(), app.CreateEventInput{
			OrganizerID: claims.UserID,
			Title:       req.Title,
			Description: req.Description,
			Venue:       req.Venue,
			Category:    req.Category,
			StartsAt:    req.StartsAt,
			Capacity:    req.Capacity,
			PriceCents:  req.PriceCents,
		})
		if err != nil {
			writeEventError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toEventResponse(event))
	}
}

// HandleUpdateEvent returns a PUT handler applying an organizer edit.
func HandleUpdateEvent(svc EventsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "authorization required")
			return
		}

		var req updateEventRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		event, err := svc.UpdateEvent(r.Context(), r.PathValue("id"), claims.UserID, app.UpdateEventInput{
			Title:       req.Title,
			Description: req.Description,
			Venue:       req.Venue,
			Category:    req.Category,
			StartsAt:    req.StartsAt,
			Capacity:    req.Capacity,
			PriceCents:  req.PriceCents,
		})
		if err != nil {
			writeEventError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toEventResponse(event))
	}
}

// HandleDeleteEvent returns a DELETE handler removing an organizer's event.
func HandleDeleteEvent(svc EventsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "authorization required")
			return
		}

		if err := svc.DeleteEvent(r.Context(), r.PathValue("id"), claims.UserID); err != nil {
			writeEventError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleOrganizerEvents returns a GET handler listing the authenticated
// organizer's events.
func HandleOrganizerEvents(svc EventsService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := claimsFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "authorization required")
			return
		}

		events, err := svc.ListByOrganizer(r.Context(), claims.UserID)
		if err != nil {
			writeEventError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toEventResponses(events))
	}
}

func toEventResponses(events []domain.Event) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	return out
}

func writeEventError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidID):
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case errors.Is(err, domain.ErrTitleRequired):
		writeError(w, http.StatusBadRequest, codeTitleRequired, err.Error())
	case errors.Is(err, domain.ErrInvalidCapacity):
		writeError(w, http.StatusBadRequest, codeInvalidCapacity, err.Error())
	case errors.Is(err, domain.ErrInvalidPrice):
		writeError(w, http.StatusBadRequest, codeInvalidPrice, err.Error())
	case errors.Is(err, domain.ErrEventNotFound):
		writeError(w, http.StatusNotFound, codeEventNotFound, err.Error())
	case errors.Is(err, domain.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, codeForbidden, err.Error())
	case errors.Is(err, domain.ErrCapacityBelowSold):
		writeError(w, http.StatusConflict, codeCapacityBelowSold, err.Error())
	case errors.Is(err, domain.ErrEventHasActiveTickets):
		writeError(w, http.StatusConflict, codeEventHasActiveTickets, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
