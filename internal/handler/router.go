package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/impulse-registration/internal/auth"
)

// RouterConfig carries what the router needs beyond the handlers.
type RouterConfig struct {
	Verifier       auth.Verifier
	Metrics        http.Handler
	AllowedOrigins []string
	WebDir         string
}

// NewRouter builds the HTTP routes.
func NewRouter(h *Handler, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger)                  // structured access log
	r.Use(CORS(cfg.AllowedOrigins))

	r.Get("/health", HealthCheck)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", h.ListCatalog)
			r.Get("/{category}/{id}", h.GetCatalogEntry)
			r.Get("/{category}/{id}/quote", h.Quote)
		})

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(cfg.Verifier))
			r.Post("/session", h.SignIn)
			r.Get("/me", h.Me)
			r.Get("/me/registrations", h.MyRegistrations)
			r.Get("/me/registrations/{id}/od-letter", h.ODLetter)
			r.Post("/registrations", h.Register)
			r.Post("/registrations/checkout/{orderId}", h.CompleteCheckout)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.AdminLogin)
			r.Group(func(r chi.Router) {
				r.Use(AdminAuth(h.admin.Authenticate))
				r.Get("/registrations", h.AdminListRegistrations)
				r.Post("/registrations", h.AdminCreateRegistration)
				r.Get("/registrations/export", h.AdminExport)
				r.Post("/registrations/{id}/od", h.AdminEnableOD)
				r.Get("/stats", h.AdminStats)
			})
		})
	})

	if cfg.WebDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.WebDir)))
	}
	return r
}
