package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/ticket/entity"
)

// CodeConstraint is the unique constraint on ticket_code.
const CodeConstraint = "tickets_ticket_code_key"

const viewQuery = `
SELECT
  t.id AS ticket_id,
  t.user_id,
  t.ticket_code,
  t.status,
  t.price,
  t.qr_code_url,
  t.created_at,
  e.id AS event_id,
  e.name AS event_name,
  e.start_date,
  e.end_date,
  e.location
FROM tickets t
JOIN events e ON t.event_id = e.id`

type TicketRepo struct {
	db *sqlx.DB
}

func NewTicketRepo(db *sqlx.DB) *TicketRepo { return &TicketRepo{db: db} }

// EnsureTable creates the tickets table. events and users must exist first.
func (r *TicketRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS tickets (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL REFERENCES users (id),
  event_id BIGINT NOT NULL REFERENCES events (id),
  ticket_code TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  price NUMERIC(10, 2) NOT NULL,
  qr_code_url TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  CONSTRAINT tickets_ticket_code_key UNIQUE (ticket_code)
);
`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	const idx = `CREATE INDEX IF NOT EXISTS idx_tickets_user_event ON tickets (user_id, event_id);`
	_, err := r.db.ExecContext(ctx, idx)
	return err
}

// Create inserts t and fills ID, Status and CreatedAt from the stored row.
func (r *TicketRepo) Create(ctx context.Context, t *entity.Ticket) error {
	const q = `INSERT INTO tickets (user_id, event_id, ticket_code, price, qr_code_url) VALUES ($1, $2, $3, $4, $5) RETURNING id, status, created_at`
	return r.db.QueryRowxContext(ctx, q, t.UserID, t.EventID, t.TicketCode, t.Price, t.QRCodeURL).
		Scan(&t.ID, &t.Status, &t.CreatedAt)
}

// ListByUser returns the user's tickets, newest first.
func (r *TicketRepo) ListByUser(ctx context.Context, userID int64) ([]entity.View, error) {
	q := viewQuery + ` WHERE t.user_id = $1 ORDER BY t.created_at DESC`
	out := []entity.View{}
	if err := r.db.SelectContext(ctx, &out, q, userID); err != nil {
		return nil, err
	}
	return out, nil
}

// GetForUser returns the ticket only when userID owns it, else sql.ErrNoRows.
func (r *TicketRepo) GetForUser(ctx context.Context, id, userID int64) (*entity.View, error) {
	q := viewQuery + ` WHERE t.id = $1 AND t.user_id = $2`
	var v entity.View
	if err := r.db.GetContext(ctx, &v, q, id, userID); err != nil {
		return nil, err
	}
	return &v, nil
}

// FindByUserAndEvent returns the user's earliest ticket for the event, or sql.ErrNoRows.
func (r *TicketRepo) FindByUserAndEvent(ctx context.Context, userID, eventID int64) (*entity.Ticket, error) {
	const q = `SELECT id, user_id, event_id, ticket_code, status, price, qr_code_url, created_at FROM tickets WHERE user_id = $1 AND event_id = $2 ORDER BY id LIMIT 1`
	var t entity.Ticket
	if err := r.db.GetContext(ctx, &t, q, userID, eventID); err != nil {
		return nil, err
	}
	return &t, nil
}
