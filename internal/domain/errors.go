package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrTicketNotFound = errors.New("ticket not found")
	ErrUserNotFound   = errors.New("user not found")

	ErrAlreadyBooked    = errors.New("already booked for this event")
	ErrSoldOut          = errors.New("sold out")
	ErrAlreadyCancelled = errors.New("ticket already cancelled")
	ErrNotAuthorized    = errors.New("not authorized")

	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrFreeEvent        = errors.New("event is free, no payment necessary")

	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidRegistration = errors.New("name, email, password and a valid role are required")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidToken        = errors.New("invalid or expired token")

	ErrInvalidID             = errors.New("invalid id")
	ErrTitleRequired         = errors.New("event title required")
	ErrInvalidCapacity       = errors.New("capacity must be at least 1")
	ErrInvalidPrice          = errors.New("price must not be negative")
	ErrCapacityBelowSold     = errors.New("capacity cannot drop below tickets sold")
	ErrEventHasActiveTickets = errors.New("event has active tickets")
)

// ReconciliationError marks a verified payment for which no ticket could be
// issued: money was collected but the booking failed terminally. Callers must
// route these to an operator/refund workflow rather than retry.
type ReconciliationError struct {
	ProviderEventID string
	EventID         string
	AttendeeID      string
	Err             error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("payment %s for event %s, attendee %s could not be reconciled: %v",
		e.ProviderEventID, e.EventID, e.AttendeeID, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}
