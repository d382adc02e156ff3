package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/event"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/respond"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/ticket"
	"github.com/ovaphlow/pitchfork/service-ticketing-go/internal/user"
)

// Handlers groups the feature handlers mounted by RegisterRoutes.
type Handlers struct {
	User   *user.Handler
	Event  *event.Handler
	Ticket *ticket.Handler
}

// RegisterRoutes mounts the public auth routes and the bearer-protected catalog
// and ticket routes.
func RegisterRoutes(logger *zap.SugaredLogger, tokens TokenVerifier, h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(logger))
	r.Use(RecoverMiddleware(logger))
	r.Use(SecurityHeadersMiddleware())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.ErrorStatus(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.ErrorStatus(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// health
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "OK"})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.User.Register)
		r.Post("/login", h.User.Login)
		r.Post("/verify", h.User.Verify)
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuthMiddleware(tokens, logger))

		r.Route("/event", func(r chi.Router) {
			r.Get("/", h.Event.List)
			r.Post("/create", h.Event.Create)
			r.Get("/{id}", h.Event.Get)
		})
		r.Route("/ticket", func(r chi.Router) {
			r.Get("/", h.Ticket.List)
			r.Post("/create", h.Ticket.Create)
			r.Post("/generate-qr-code", h.Ticket.QRCodeURL)
			r.Get("/{id}", h.Ticket.Get)
		})
	})

	return r
}
