package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeNotFound              = "not_found"
	codeInvalidRequestBody    = "invalid_request_body"
	codeInvalidID             = "invalid_id"
	codeInvalidStartsAt       = "invalid_starts_at"
	codeTitleRequired         = "title_required"
	codeInvalidCapacity       = "invalid_capacity"
	codeInvalidPrice          = "invalid_price"
	codeCapacityBelowSold     = "capacity_below_sold"
	codeEventHasActiveTickets = "event_has_active_tickets"
	codeEventNotFound         = "event_not_found"
	codeTicketNotFound        = "ticket_not_found"
	codeUserNotFound          = "user_not_found"
	codeAlreadyBooked         = "already_booked"
	codeSoldOut               = "sold_out"
	codeAlreadyCancelled      = "already_cancelled"
	codeEmailTaken            = "email_taken"
	codeInvalidRegistration   = "invalid_registration"
	codeInvalidCredentials    = "invalid_credentials"
	codeFreeEvent             = "free_event"
	codeInvalidSignature      = "invalid_signature"
	codeUnauthorized          = "unauthorized"
	codeForbidden             = "forbidden"
	codeInternalError         = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
