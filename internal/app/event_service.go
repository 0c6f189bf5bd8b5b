package app

import (
	"context"
	"time"

	"github.com/eventra/eventra/internal/clock"
	"github.com/eventra/eventra/internal/domain"
)

// EventRepository persists events. GetForUpdate must lock the row so the
// sold-counter guards in Update/Delete hold under concurrent bookings.
type EventRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, event domain.Event) error
	GetByID(ctx context.Context, eventID string) (domain.Event, error)
	GetForUpdate(ctx context.Context, eventID string) (domain.Event, error)
	Update(ctx context.Context, event domain.Event) error
	Delete(ctx context.Context, eventID string) error
	List(ctx context.Context) ([]domain.Event, error)
	ListByOrganizer(ctx context.Context, organizerID string) ([]domain.Event, error)
}

type EventService struct {
	repo  EventRepository
	clock clock.Clock
}

func NewEventService(repo EventRepository, clk clock.Clock) *EventService {
	return &EventService{
		repo:  repo,
		clock: clk,
	}
}

type CreateEventInput struct {
	OrganizerID string
	Title       string
	Description string
	Venue       string
	Category    string
	StartsAt    time.Time
	Capacity    int
	PriceCents  int64
}

func (s *EventService) CreateEvent(ctx context.Context, in CreateEventInput) (domain.Event, error) {
	if in.OrganizerID == "" {
		return domain.Event{}, domain.ErrInvalidID
	}
	if in.Title == "" {
		return domain.Event{}, domain.ErrTitleRequired
	}
	if in.Capacity < 1 {
		return domain.Event{}, domain.ErrInvalidCapacity
	}
	if in.PriceCents < 0 {
		return domain.Event{}, domain.ErrInvalidPrice
	}

	event := domain.Event{
		ID:          newID(),
		OrganizerID: in.OrganizerID,
		Title:       in.Title,
		Description: in.Description,
		Venue:       in.Venue,
		Category:    in.Category,
		StartsAt:    in.StartsAt,
		Capacity:    in.Capacity,
		Sold:        0,
		PriceCents:  in.PriceCents,
		CreatedAt:   s.clock.Now(),
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return domain.Event{}, err
	}
	return event, nil
}

// UpdateEventInput carries the mutable fields; nil leaves a field unchanged.
type UpdateEventInput struct {
	Title       *string
	Description *string
	Venue       *string
	Category    *string
	StartsAt    *time.Time
	Capacity    *int
	PriceCents  *int64
}

// UpdateEvent applies an organizer edit. The event row is locked for the
// duration of the transaction so the capacity guard cannot race a concurrent
// booking's reservation.
func (s *EventService) UpdateEvent(ctx context.Context, eventID, organizerID string, in UpdateEventInput) (domain.Event, error) {
	if eventID == "" || organizerID == "" {
		return domain.Event{}, domain.ErrInvalidID
	}

	var result domain.Event
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		event, err := s.repo.GetForUpdate(txCtx, eventID)
		if err != nil {
			return err
		}
		if event.OrganizerID != organizerID {
			return domain.ErrNotAuthorized
		}

		if in.Title != nil {
			if *in.Title == "" {
				return domain.ErrTitleRequired
			}
			event.Title = *in.Title
		}
		if in.Description != nil {
			event.Description = *in.Description
		}
		if in.Venue != nil {
			event.Venue = *in.Venue
		}
		if in.Category != nil {
			event.Category = *in.Category
		}
		if in.StartsAt != nil {
			event.StartsAt = *in.StartsAt
		}
		if in.Capacity != nil {
			if *in.Capacity < 1 {
				return domain.ErrInvalidCapacity
			}
			if *in.Capacity < event.Sold {
				return domain.ErrCapacityBelowSold
			}
			event.Capacity = *in.Capacity
		}
		if in.PriceCents != nil {
			if *in.PriceCents < 0 {
				return domain.ErrInvalidPrice
			}
			event.PriceCents = *in.PriceCents
		}

		if err := s.repo.Update(txCtx, event); err != nil {
			return err
		}
		result = event
		return nil
	})
	if err != nil {
		return domain.Event{}, err
	}
	return result, nil
}

// DeleteEvent removes an event with no outstanding active tickets. The
// repository enforces the active-ticket guard inside the delete statement.
func (s *EventService) DeleteEvent(ctx context.Context, eventID, organizerID string) error {
	if eventID == "" || organizerID == "" {
		return domain.ErrInvalidID
	}

	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		event, err := s.repo.GetForUpdate(txCtx, eventID)
		if err != nil {
			return err
		}
		if event.OrganizerID != organizerID {
			return domain.ErrNotAuthorized
		}
		return s.repo.Delete(txCtx, eventID)
	})
}

func (s *EventService) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	if eventID == "" {
		return domain.Event{}, domain.ErrInvalidID
	}
	return s.repo.GetByID(ctx, eventID)
}

func (s *EventService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.repo.List(ctx)
}

func (s *EventService) ListByOrganizer(ctx context.Context, organizerID string) ([]domain.Event, error) {
	if organizerID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListByOrganizer(ctx, organizerID)
}
