package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventra/eventra/internal/domain"
)

const ticketColumns = `id, event_id, attendee_id, status, booking_date`

// TicketRepository is the booking ledger. A partial unique index on
// (event_id, attendee_id) WHERE status = 'active' makes the database the
// final arbiter of the one-active-ticket-per-pair invariant.
type TicketRepository struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

func (r *TicketRepository) FindActive(ctx context.Context, eventID, attendeeID string) (*domain.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE event_id = $1 AND attendee_id = $2 AND status = 'active'`

	ticket, err := scanTicket(queryRow(ctx, r.pool, q, eventID, attendeeID))
	if err != nil {
		if isInvalidUUID(err) || err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find active ticket: %w", err)
	}
	return &ticket, nil
}

func (r *TicketRepository) Create(ctx context.Context, ticket domain.Ticket) error {
	const stmt = `
INSERT INTO tickets (id, event_id, attendee_id, status, booking_date)
VALUES ($1, $2, $3, $4, $5)`

	_, err := exec(ctx, r.pool, stmt,
		ticket.ID,
		ticket.EventID,
		ticket.AttendeeID,
		ticket.Status,
		ticket.BookingDate,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyBooked
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

// Cancel flips an active ticket to cancelled. The status predicate keeps the
// transition one-way; zero affected rows is disambiguated into not-found
// versus already-cancelled.
func (r *TicketRepository) Cancel(ctx context.Context, ticketID string) error {
	const stmt = `UPDATE tickets SET status = 'cancelled' WHERE id = $1 AND status = 'active'`

	tag, err := exec(ctx, r.pool, stmt, ticketID)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrTicketNotFound
		}
		return fmt.Errorf("cancel ticket: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var status string
	if err := queryRow(ctx, r.pool, `SELECT status FROM tickets WHERE id = $1`, ticketID).Scan(&status); err != nil {
		if err == pgx.ErrNoRows {
			return domain.ErrTicketNotFound
		}
		return fmt.Errorf("check ticket: %w", err)
	}
	return domain.ErrAlreadyCancelled
}

func (r *TicketRepository) GetByID(ctx context.Context, ticketID string) (domain.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`

	ticket, err := scanTicket(queryRow(ctx, r.pool, q, ticketID))
	if err != nil {
		if isInvalidUUID(err) || err == pgx.ErrNoRows {
			return domain.Ticket{}, domain.ErrTicketNotFound
		}
		return domain.Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	return ticket, nil
}

func (r *TicketRepository) ListByAttendee(ctx context.Context, attendeeID string) ([]domain.Ticket, error) {
	const q = `SELECT ` + ticketColumns + ` FROM tickets WHERE attendee_id = $1 ORDER BY booking_date DESC`

	rows, err := query(ctx, r.pool, q, attendeeID)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var t domain.Ticket
	var status string
	err := row.Scan(&t.ID, &t.EventID, &t.AttendeeID, &status, &t.BookingDate)
	if err != nil {
		return domain.Ticket{}, err
	}
	t.Status = domain.TicketStatus(status)
	return t, nil
}
