package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/respond"
)

// Handler exposes HTTP endpoints for registration and OTP login.
type Handler struct {
	svc    *UserService
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRequest request body for register endpoint.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid register payload", "err", err)
		respond.ErrorStatus(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if _, err := h.svc.Register(r.Context(), req.Email, req.Username, req.Password); err != nil {
		respond.Error(w, h.logger, err, "Failed to create account")
		return
	}
	respond.Message(w, http.StatusCreated, "Account created successfully, subscription email sent.")
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		respond.ErrorStatus(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := h.svc.Login(r.Context(), req.Email, req.Password); err != nil {
		// unknown accounts answer like bad credentials
		if errors.Is(err, ErrUserNotFound) {
			respond.ErrorStatus(w, http.StatusUnauthorized, "User does not exist")
			return
		}
		respond.Error(w, h.logger, err, "Login failed")
		return
	}
	respond.Message(w, http.StatusOK, "OTP sent. Please verify to complete login.")
}

// VerifyRequest completes a login with the emailed code.
type VerifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyResponse carries the bearer token.
type VerifyResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid verify payload", "err", err)
		respond.ErrorStatus(w, http.StatusBadRequest, "invalid payload")
		return
	}
	tok, err := h.svc.Verify(r.Context(), req.Email, req.OTP)
	if err != nil {
		respond.Error(w, h.logger, err, "Verification failed")
		return
	}
	respond.JSON(w, http.StatusOK, VerifyResponse{Message: "Verification successful", Token: tok})
}
