package ticket

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
	svc    *TicketService
	logger *zap.SugaredLogger
}

func NewHandler(svc *TicketService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// EventRequest is the body of POST /ticket/create and POST /ticket/generate-qr-code.
type EventRequest struct {
	EventID int64 `json:"event_id"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := token.FromContext(r.Context())
	if !ok {
		respond.ErrorStatus(w, http.StatusUnauthorized, "Authorization token required")
		return
	}
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid ticket payload", "err", err)
		respond.ErrorStatus(w, http.StatusBadRequest, ErrMissingEventID.Error())
		return
	}
	t, err := h.svc.CreateTicket(r.Context(), claims.UserID, req.EventID)
	if err != nil {
		respond.Error(w, h.logger, err, "Internal server error")
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]any{"message": "Ticket created successfully", "ticket": t})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := token.FromContext(r.Context())
	if !ok {
		respond.ErrorStatus(w, http.StatusUnauthorized, "Authorization token required")
		return
	}
	tickets, err := h.svc.ListTickets(r.Context(), claims.UserID)
	if err != nil {
		respond.Error(w, h.logger, err, "Internal server error")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"tickets": tickets})
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
	v, err := h.svc.GetTicket(r.Context(), claims.UserID, id)
	if err != nil {
		respond.Error(w, h.logger, err, "Internal server error")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"ticket": v})
}

func (h *Handler) QRCodeURL(w http.ResponseWriter, r *http.Request) {
	claims, ok := token.FromContext(r.Context())
	if !ok {
		respond.ErrorStatus(w, http.StatusUnauthorized, "Authorization token required")
		return
	}
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid qr payload", "err", err)
		respond.ErrorStatus(w, http.StatusBadRequest, ErrMissingEventID.Error())
		return
	}
	url, err := h.svc.GetTicketQrURL(r.Context(), claims.UserID, req.EventID)
	if err != nil {
		respond.Error(w, h.logger, err, "Internal server error")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"presigned_url": url})
}
