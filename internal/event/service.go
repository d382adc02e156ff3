package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/activity"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/cache"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/event/entity"
	userentity "github.com/ovaphlow/pitchfork/service-ticketing-go/internal/user/entity"
)

type Store interface {
	CreateWithImage(ctx context.Context, e *entity.Event, upload func(ctx context.Context, id int64) (string, error)) error
	List(ctx context.Context) ([]entity.Event, error)
	GetByID(ctx context.Context, id int64) (*entity.Event, error)
}

// ImageUploader stores an event image and returns its URL. Implemented by the
// gateway client and the S3 store.
type ImageUploader interface {
	UploadEventImage(ctx context.Context, eventID int64, image string) (string, error)
}

// Gate rejects callers who are not subscribed.
type Gate interface {
	Require(ctx context.Context, userID int64) (*userentity.User, error)
}

var (
	ErrMissingFields = apperr.New(apperr.ErrValidation, "Missing required fields: name, startDate, or image")
	ErrInvalidDate   = apperr.New(apperr.ErrValidation, "Invalid date format")
	ErrNotFound      = apperr.New(apperr.ErrNotFound, "Event not found")
)

// dateLayouts accepted for startDate and endDate.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

type CreateInput struct {
	Name        string
	Description string
	Location    string
	StartDate   string
	EndDate     string
	Image       string
}

type EventService struct {
	store    Store
	images   ImageUploader
	gate     Gate
	cache    cache.Cache
	activity activity.Recorder
	logger   *zap.SugaredLogger

	CacheTTL time.Duration
}

func NewEventService(store Store, images ImageUploader, gate Gate, c cache.Cache, rec activity.Recorder, logger *zap.SugaredLogger) *EventService {
	return &EventService{
		store:    store,
		images:   images,
		gate:     gate,
		cache:    c,
		activity: rec,
		logger:   logger,
		CacheTTL: 30 * time.Second,
	}
}

// CreateEvent stores the event and its image together: when the upload is not
// confirmed the insert is rolled back.
func (s *EventService) CreateEvent(ctx context.Context, userID int64, in CreateInput) (*entity.Event, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || strings.TrimSpace(in.StartDate) == "" || in.Image == "" {
		return nil, ErrMissingFields
	}
	start, err := parseDate(strings.TrimSpace(in.StartDate))
	if err != nil {
		return nil, err
	}
	e := &entity.Event{Name: name, Description: in.Description, Location: in.Location, StartDate: start}
	if v := strings.TrimSpace(in.EndDate); v != "" {
		end, err := parseDate(v)
		if err != nil {
			return nil, err
		}
		e.EndDate = &end
	}

	err = s.store.CreateWithImage(ctx, e, func(ctx context.Context, id int64) (string, error) {
		return s.images.UploadEventImage(ctx, id, in.Image)
	})
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.logger.Infow("event created", "event_id", e.ID, "user_id", userID)
	s.activity.Record(strconv.FormatInt(userID, 10), "User Create Event Attempt", map[string]string{
		"event_id":   strconv.FormatInt(e.ID, 10),
		"event_name": e.Name,
	})
	return e, nil
}

func (s *EventService) ListEvents(ctx context.Context, userID int64) ([]entity.Event, error) {
	if _, err := s.gate.Require(ctx, userID); err != nil {
		return nil, err
	}
	events, hit, err := cache.ReadThrough(ctx, s.cache, s.logger, cache.AllEventsKey, s.CacheTTL, s.store.List)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if !hit {
		s.activity.Record(strconv.FormatInt(userID, 10), "User Get All Events Attempt", nil)
	}
	return events, nil
}

func (s *EventService) GetEvent(ctx context.Context, userID, eventID int64) (*entity.Event, error) {
	if _, err := s.gate.Require(ctx, userID); err != nil {
		return nil, err
	}
	ev, hit, err := cache.ReadThrough(ctx, s.cache, s.logger, cache.EventKey(eventID), s.CacheTTL, func(ctx context.Context) (*entity.Event, error) {
		ev, err := s.store.GetByID(ctx, eventID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return ev, err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get event %d: %w", eventID, err)
	}
	if !hit {
		s.activity.Record(strconv.FormatInt(userID, 10), "User Get Specific Event Attempt", map[string]string{
			"event_id": strconv.FormatInt(eventID, 10),
		})
	}
	return ev, nil
}
