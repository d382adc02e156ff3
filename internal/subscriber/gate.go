// Package subscriber enforces that a caller is subscribed to notifications before
// catalog and ticket operations run.
package subscriber

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/user/entity"
)

var (
	ErrNotSubscribed = apperr.New(apperr.ErrForbidden, "User is not subscribed to notifications")
	ErrUnknownUser   = apperr.New(apperr.ErrNotFound, "User does not exist")
)

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)
}

// StatusChecker asks the notification gateway about an address.
type StatusChecker interface {
	Subscribed(ctx context.Context, email string) (bool, error)
}

// Gate checks subscription status on every call; nothing is cached.
type Gate struct {
	users  UserLookup
	status StatusChecker
}

func NewGate(users UserLookup, status StatusChecker) *Gate {
	return &Gate{users: users, status: status}
}

// Require returns the user when subscribed.
func (g *Gate) Require(ctx context.Context, userID int64) (*entity.User, error) {
	u, err := g.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnknownUser
		}
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	ok, err := g.status.Subscribed(ctx, u.Email)
	if err != nil {
		return nil, fmt.Errorf("check subscription: %w", err)
	}
	if !ok {
		return nil, ErrNotSubscribed
	}
	return u, nil
}
