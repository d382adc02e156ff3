package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/event/entity"
)

const columns = `id, name, description, location, start_date, end_date, image_url, created_at`

// EventRepo provides data access for the events table.
type EventRepo struct {
	db *sqlx.DB
}

func NewEventRepo(db *sqlx.DB) *EventRepo { return &EventRepo{db: db} }

// EnsureTable creates the events table if not exists (idempotent).
func (r *EventRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS events (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  location TEXT NOT NULL DEFAULT '',
  start_date TIMESTAMPTZ NOT NULL,
  end_date TIMESTAMPTZ,
  image_url TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	const idx = `CREATE INDEX IF NOT EXISTS idx_events_start_date ON events (start_date);`
	_, err := r.db.ExecContext(ctx, idx)
	return err
}

// CreateWithImage inserts e, hands the new id to upload and stores the returned URL,
// all in one transaction. If upload fails nothing is committed.
func (r *EventRepo) CreateWithImage(ctx context.Context, e *entity.Event, upload func(ctx context.Context, id int64) (string, error)) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const ins = `INSERT INTO events (name, description, location, start_date, end_date) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	if err := tx.QueryRowxContext(ctx, ins, e.Name, e.Description, e.Location, e.StartDate, e.EndDate).Scan(&e.ID, &e.CreatedAt); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	url, err := upload(ctx, e.ID)
	if err != nil {
		return err
	}

	const upd = `UPDATE events SET image_url = $1 WHERE id = $2`
	if _, err := tx.ExecContext(ctx, upd, url, e.ID); err != nil {
		return fmt.Errorf("set image url: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	e.ImageURL = url
	return nil
}

// List returns all events, earliest start first.
func (r *EventRepo) List(ctx context.Context) ([]entity.Event, error) {
	q := `SELECT ` + columns + ` FROM events ORDER BY start_date ASC`
	out := []entity.Event{}
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches an event or sql.ErrNoRows.
func (r *EventRepo) GetByID(ctx context.Context, id int64) (*entity.Event, error) {
	q := `SELECT ` + columns + ` FROM events WHERE id = $1`
	var row entity.Event
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *EventRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id)
	return ok, err
}
