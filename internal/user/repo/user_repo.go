package repo

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/user/entity"
)

// Unique constraint names created by EnsureTable. Email uniqueness is an index on
// lower(email), so addresses differing only in case are one account.
const (
	EmailConstraint    = "users_email_key"
	UsernameConstraint = "users_username_key"
)

// UserRepo provides data access for users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  email TEXT NOT NULL,
  username TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  CONSTRAINT users_username_key UNIQUE (username)
);
`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return err
	}
	const idx = `CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (lower(email));`
	_, err := r.db.ExecContext(ctx, idx)
	return err
}

// Create inserts a new user row. Returns new ID. A duplicate email or username
// surfaces as the driver's unique_violation error.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) (int64, error) {
	const q = `INSERT INTO users (email, username, password_hash) VALUES ($1, $2, $3) RETURNING id, created_at`
	if err := r.db.QueryRowxContext(ctx, q, u.Email, u.Username, u.PasswordHash).Scan(&u.ID, &u.CreatedAt); err != nil {
		return 0, err
	}
	return u.ID, nil
}

// GetByEmail returns a user matched by email, ignoring case, or sql.ErrNoRows.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	const q = `SELECT id, email, username, password_hash, created_at FROM users WHERE lower(email) = lower($1)`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, email); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetByID fetches a user row or sql.ErrNoRows.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	const q = `SELECT id, email, username, password_hash, created_at FROM users WHERE id = $1`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, err
	}
	return &row, nil
}
