package event

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/respond"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/token"
)

type Handler struct {
	svc    *EventService
	logger *zap.SugaredLogger
}

func NewHandler(svc *EventService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CreateRequest is the body of POST /event/create. image is base64 or a data URL.
type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Image       string `json:"image"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := token.FromContext(r.Context())
	if !ok {
		respond.ErrorStatus(w, http.StatusUnauthorized, "Authorization token required")
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid event payload", "err", err)
		respond.ErrorStatus(w, http.StatusBadRequest, "invalid payload")
		return
	}
	ev, err := h.svc.CreateEvent(r.Context(), claims.UserID, CreateInput(req))
	if err != nil {
		respond.Error(w, h.logger, err, "Failed to create event")
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]any{"message": "Event created successfully", "event": ev})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := token.FromContext(r.Context())
	if !ok {
		respond.ErrorStatus(w, http.StatusUnauthorized, "Authorization token required")
		return
	}
	events, err := h.svc.ListEvents(r.Context(), claims.UserID)
	if err != nil {
		respond.Error(w, h.logger, err, "Failed to fetch events")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := token.FromContext(r.Context())
	if !ok {
		respond.ErrorStatus(w, http.StatusUnauthorized, "Authorization token required")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respond.ErrorStatus(w, http.StatusNotFound, ErrNotFound.Error())
		return
	}
	ev, err := h.svc.GetEvent(r.Context(), claims.UserID, id)
	if err != nil {
		respond.Error(w, h.logger, err, "Internal server error")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"event": ev})
}
