package ticket

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/activity"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/cache"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/ticket/entity"
	ticketrepo "github.com/ovaphlow/pitchfork/service-ticketing-go/internal/ticket/repo"
	userentity "github.com/ovaphlow/pitchfork/service-ticketing-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/pkg/utilities"
)

type Store interface {
	Create(ctx context.Context, t *entity.Ticket) error
	ListByUser(ctx context.Context, userID int64) ([]entity.View, error)
	GetForUser(ctx context.Context, id, userID int64) (*entity.View, error)
	FindByUserAndEvent(ctx context.Context, userID, eventID int64) (*entity.Ticket, error)
}

type EventChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// QRStore keeps one QR image per ticket code. Implemented by the gateway client and
// the S3 store.
type QRStore interface {
	UploadTicketQR(ctx context.Context, eventID, userID int64, code string, png []byte) (string, error)
	TicketQRURL(ctx context.Context, eventID, userID int64, code string) (string, error)
}

type Gate interface {
	Require(ctx context.Context, userID int64) (*userentity.User, error)
}

var (
	ErrMissingEventID = apperr.New(apperr.ErrValidation, "Event ID is required")
	ErrEventNotFound  = apperr.New(apperr.ErrNotFound, "Event not found")
	ErrNotFound       = apperr.New(apperr.ErrNotFound, "Ticket not found or access denied")
	ErrNoTicket       = apperr.New(apperr.ErrNotFound, "Ticket not found")
	ErrCodeExhausted  = fmt.Errorf("ticket code collided on every attempt: %w", apperr.ErrInternal)
)

// DefaultPrice is charged for every ticket until pricing exists.
const DefaultPrice = 50.00

type TicketService struct {
	store    Store
	events   EventChecker
	qr       QRStore
	gate     Gate
	cache    cache.Cache
	activity activity.Recorder
	logger   *zap.SugaredLogger

	newCode func(time.Time) string
	encode  func(string) ([]byte, error)
	now     func() time.Time

	CacheTTL    time.Duration
	MaxAttempts int
	Price       float64
}

func NewTicketService(store Store, events EventChecker, qr QRStore, gate Gate, c cache.Cache, rec activity.Recorder, logger *zap.SugaredLogger) *TicketService {
	return &TicketService{
		store:       store,
		events:      events,
		qr:          qr,
		gate:        gate,
		cache:       c,
		activity:    rec,
		logger:      logger,
		newCode:     utilities.NewTicketCode,
		encode:      EncodeQR,
		now:         time.Now,
		CacheTTL:    30 * time.Second,
		MaxAttempts: 3,
		Price:       DefaultPrice,
	}
}

// CreateTicket issues a ticket for eventID. A ticket code that collides with an
// existing one is regenerated together with its QR image.
func (s *TicketService) CreateTicket(ctx context.Context, userID, eventID int64) (*entity.Ticket, error) {
	if eventID <= 0 {
		return nil, ErrMissingEventID
	}
	if _, err := s.gate.Require(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.MaxAttempts; attempt++ {
		t, err := s.issue(ctx, userID, eventID)
		if err == nil {
			s.logger.Infow("ticket issued", "ticket_id", t.ID, "event_id", eventID, "user_id", userID)
			s.activity.Record(strconv.FormatInt(userID, 10), "User Buy Ticket Attempt", map[string]string{
				"event_id":  strconv.FormatInt(eventID, 10),
				"ticket_id": strconv.FormatInt(t.ID, 10),
			})
			return t, nil
		}
		if !database.IsUniqueViolation(err, ticketrepo.CodeConstraint) {
			return nil, err
		}
		s.logger.Warnw("ticket code collision", "attempt", attempt, "event_id", eventID)
	}
	return nil, ErrCodeExhausted
}

func (s *TicketService) issue(ctx context.Context, userID, eventID int64) (*entity.Ticket, error) {
	code := s.newCode(s.now())
	png, err := s.encode(code)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	url, err := s.qr.UploadTicketQR(ctx, eventID, userID, code, png)
	if err != nil {
		return nil, fmt.Errorf("upload qr: %w", err)
	}
	t := &entity.Ticket{
		UserID:     userID,
		EventID:    eventID,
		TicketCode: code,
		Price:      s.Price,
		QRCodeURL:  url,
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TicketService) ListTickets(ctx context.Context, userID int64) ([]entity.View, error) {
	if _, err := s.gate.Require(ctx, userID); err != nil {
		return nil, err
	}
	tickets, hit, err := cache.ReadThrough(ctx, s.cache, s.logger, cache.UserTicketsKey(userID), s.CacheTTL, func(ctx context.Context) ([]entity.View, error) {
		return s.store.ListByUser(ctx, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	if !hit {
		s.activity.Record(strconv.FormatInt(userID, 10), "User Get All Tickets Attempt", nil)
	}
	return tickets, nil
}

// GetTicket returns the ticket only to its owner. Cached entries are shared by id,
// so ownership is checked again on every hit.
func (s *TicketService) GetTicket(ctx context.Context, userID, ticketID int64) (*entity.View, error) {
	if _, err := s.gate.Require(ctx, userID); err != nil {
		return nil, err
	}
	v, hit, err := cache.ReadThrough(ctx, s.cache, s.logger, cache.TicketKey(ticketID), s.CacheTTL, func(ctx context.Context) (*entity.View, error) {
		v, err := s.store.GetForUser(ctx, ticketID, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return v, err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get ticket %d: %w", ticketID, err)
	}
	if v == nil || v.UserID != userID {
		return nil, ErrNotFound
	}
	if !hit {
		s.activity.Record(strconv.FormatInt(userID, 10), "User Get Specific Ticket Attempt", map[string]string{
			"ticket_id": strconv.FormatInt(ticketID, 10),
		})
	}
	return v, nil
}

// GetTicketQrURL returns a short-lived link to the QR image of the caller's ticket
// for eventID. Links are never cached.
func (s *TicketService) GetTicketQrURL(ctx context.Context, userID, eventID int64) (string, error) {
	if eventID <= 0 {
		return "", ErrMissingEventID
	}
	if _, err := s.gate.Require(ctx, userID); err != nil {
		return "", err
	}
	if err := s.requireEvent(ctx, eventID); err != nil {
		return "", err
	}
	t, err := s.store.FindByUserAndEvent(ctx, userID, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoTicket
		}
		return "", fmt.Errorf("find ticket: %w", err)
	}
	url, err := s.qr.TicketQRURL(ctx, eventID, userID, t.TicketCode)
	if err != nil {
		return "", fmt.Errorf("qr url: %w", err)
	}
	s.activity.Record(strconv.FormatInt(userID, 10), "User Get Pre-Signed URL For Ticket QR Code Attempt", map[string]string{
		"ticket_id": strconv.FormatInt(t.ID, 10),
		"event_id":  strconv.FormatInt(eventID, 10),
	})
	return url, nil
}

func (s *TicketService) requireEvent(ctx context.Context, eventID int64) error {
	ok, err := s.events.Exists(ctx, eventID)
	if err != nil {
		return fmt.Errorf("check event %d: %w", eventID, err)
	}
	if !ok {
		return ErrEventNotFound
	}
	return nil
}
