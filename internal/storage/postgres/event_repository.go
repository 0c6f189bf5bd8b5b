package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventra/eventra/internal/domain"
)

const eventColumns = `id, organizer_id, title, description, venue, category, starts_at, capacity, sold, price_cents, created_at`

// EventRepository persists events and owns the inventory counters. TryReserve
// and Release are the only statements that touch the sold column.
type EventRepository struct {
	pool *pgxpool.Pool
}

func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// TryReserve claims one ticket's worth of capacity in a single conditional
// update. Checking and incrementing in one statement is what keeps concurrent
// bookings from overselling; splitting it into a read and a write would
// reintroduce the race.
func (r *EventRepository) TryReserve(ctx context.Context, eventID string) (domain.Event, error) {
	const stmt = `
UPDATE events
SET sold = sold + 1
WHERE id = $1 AND sold < capacity
RETURNING ` + eventColumns

	event, err := scanEvent(queryRow(ctx, r.pool, stmt, eventID))
	if err == nil {
		return event, nil
	}
	if isInvalidUUID(err) {
		return domain.Event{}, domain.ErrEventNotFound
	}
	if err != pgx.ErrNoRows {
		return domain.Event{}, fmt.Errorf("reserve ticket: %w", err)
	}

	// Zero rows means either the event is gone or it is full.
	var exists bool
	if err := queryRow(ctx, r.pool, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
		return domain.Event{}, fmt.Errorf("check event: %w", err)
	}
	if exists {
		return domain.Event{}, domain.ErrSoldOut
	}
	return domain.Event{}, domain.ErrEventNotFound
}

// Release returns one capacity slot, floored at zero. Releasing an event with
// nothing sold is a no-op, never an error.
func (r *EventRepository) Release(ctx context.Context, eventID string) error {
	const stmt = `UPDATE events SET sold = sold - 1 WHERE id = $1 AND sold > 0`

	if _, err := exec(ctx, r.pool, stmt, eventID); err != nil {
		if isInvalidUUID(err) {
			return nil
		}
		return fmt.Errorf("release ticket: %w", err)
	}
	return nil
}

func (r *EventRepository) Create(ctx context.Context, event domain.Event) error {
	const stmt = `
INSERT INTO events (id, organizer_id, title, description, venue, category, starts_at, capacity, sold, price_cents, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := exec(ctx, r.pool, stmt,
		event.ID,
		event.OrganizerID,
		event.Title,
		event.Description,
		event.Venue,
		event.Category,
		event.StartsAt,
		event.Capacity,
		event.Sold,
		event.PriceCents,
		event.CreatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, eventID string) (domain.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return r.getEvent(ctx, q, eventID)
}

// GetForUpdate locks the event row for the rest of the transaction so edits
// cannot race a concurrent reservation.
func (r *EventRepository) GetForUpdate(ctx context.Context, eventID string) (domain.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	return r.getEvent(ctx, q, eventID)
}

func (r *EventRepository) getEvent(ctx context.Context, q, eventID string) (domain.Event, error) {
	event, err := scanEvent(queryRow(ctx, r.pool, q, eventID))
	if err != nil {
		if isInvalidUUID(err) || err == pgx.ErrNoRows {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// Update writes every mutable column except sold. The table's
// sold <= capacity check backs up the service-level capacity guard.
func (r *EventRepository) Update(ctx context.Context, event domain.Event) error {
	const stmt = `
UPDATE events
SET title = $2, description = $3, venue = $4, category = $5, starts_at = $6, capacity = $7, price_cents = $8
WHERE id = $1`

	tag, err := exec(ctx, r.pool, stmt,
		event.ID,
		event.Title,
		event.Description,
		event.Venue,
		event.Category,
		event.StartsAt,
		event.Capacity,
		event.PriceCents,
	)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrCapacityBelowSold
		}
		return fmt.Errorf("update event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

// Delete removes an event unless active tickets still reference it.
func (r *EventRepository) Delete(ctx context.Context, eventID string) error {
	const stmt = `
DELETE FROM events
WHERE id = $1
AND NOT EXISTS (SELECT 1 FROM tickets WHERE event_id = $1 AND status = 'active')`

	tag, err := exec(ctx, r.pool, stmt, eventID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := queryRow(ctx, r.pool, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
			return fmt.Errorf("check event: %w", err)
		}
		if exists {
			return domain.ErrEventHasActiveTickets
		}
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) List(ctx context.Context) ([]domain.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events ORDER BY starts_at`
	return r.listEvents(ctx, q)
}

func (r *EventRepository) ListByOrganizer(ctx context.Context, organizerID string) ([]domain.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE organizer_id = $1 ORDER BY starts_at`
	return r.listEvents(ctx, q, organizerID)
}

func (r *EventRepository) listEvents(ctx context.Context, q string, args ...any) ([]domain.Event, error) {
	rows, err := query(ctx, r.pool, q, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func scanEvent(row pgx.Row) (domain.Event, error) {
	var e domain.Event
	err := row.Scan(
		&e.ID,
		&e.OrganizerID,
		&e.Title,
		&e.Description,
		&e.Venue,
		&e.Category,
		&e.StartsAt,
		&e.Capacity,
		&e.Sold,
		&e.PriceCents,
		&e.CreatedAt,
	)
	return e, err
}
