package http

import (
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/majidtwaha5-svg/maijjd-backend/internal/application"
	"github.com/majidtwaha5-svg/maijjd-backend/internal/domain"
)

// Options tunes transport behavior that is not part of the auth flows.
type Options struct {
	// Environment "production" hides wrapped error text from error bodies.
	Environment        string
	CORSAllowedOrigins []string
	// TrustedProxies are the peers whose X-Forwarded-For header is honored.
	TrustedProxies []netip.Prefix
	Metrics        *Metrics
	Clock          func() time.Time
}

// Handler is the HTTP adapter entrypoint for auth use-cases.
type Handler struct {
	service        *application.Service
	metrics        *Metrics
	production     bool
	corsOrigins    []string
	trustedProxies []netip.Prefix
	nowFn          func() time.Time
}

// NewHandler constructs an HTTP handler bound to application service.
func NewHandler(service *application.Service, opts Options) *Handler {
	nowFn := opts.Clock
	if nowFn == nil {
		nowFn = func() time.Time { return time.Now().UTC() }
	}
	origins := opts.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Handler{
		service:        service,
		metrics:        opts.Metrics,
		production:     opts.Environment == "production",
		corsOrigins:    origins,
		trustedProxies: opts.TrustedProxies,
		nowFn:          nowFn,
	}
}

func (h *Handler) now() time.Time {
	return h.nowFn()
}

// NewRouter registers the /auth and /admin-auth routes and the middleware stack.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(handler.observe)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   handler.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", handler.health)
	r.Get("/ready", handler.ready)
	r.Method(http.MethodGet, "/metrics", handler.metrics.Handler())
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
	})
	r.Get("/swagger/", handler.swaggerUI)
	r.Get("/swagger/openapi.yaml", handler.swaggerSpec)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", handler.login(domain.ScopeGeneral))
		r.Post("/register", handler.register)
		r.Post("/create-admin", handler.provisionAdmin)
		r.Post("/refresh", handler.refresh(domain.ScopeGeneral))
		r.Post("/forgot", handler.forgotPassword(domain.ScopeGeneral))
		r.Post("/forgot-password", handler.forgotPassword(domain.ScopeGeneral))
		r.Post("/reset", handler.resetPassword(domain.ScopeGeneral))
		r.Post("/reset-password", handler.resetPassword(domain.ScopeGeneral))
		r.Post("/send-verification-email", handler.sendVerification(domain.PurposeEmail))
		r.Post("/send-verification-sms", handler.sendVerification(domain.PurposePhone))
		r.Post("/verify-code", handler.verifyCode)

		r.Group(func(r chi.Router) {
			r.Use(handler.requireAuth(domain.ScopeGeneral))
			r.Get("/profile", handler.profile(domain.ScopeGeneral))
			r.Post("/logout", handler.logout(domain.ScopeGeneral))
			r.Post("/admin/reset-password", handler.adminResetUserPassword)
		})
	})

	r.Route("/admin-auth", func(r chi.Router) {
		r.Post("/login", handler.login(domain.ScopeAdmin))
		r.Post("/register", handler.provisionAdmin)
		r.Post("/refresh", handler.refresh(domain.ScopeAdmin))
		r.Post("/forgot-password", handler.forgotPassword(domain.ScopeAdmin))
		r.Post("/reset-password", handler.resetPassword(domain.ScopeAdmin))

		r.Group(func(r chi.Router) {
			r.Use(handler.requireAuth(domain.ScopeAdmin))
			r.Get("/profile", handler.profile(domain.ScopeAdmin))
			r.Post("/logout", handler.logout(domain.ScopeAdmin))
			r.Post("/users/reset-password", handler.adminResetUserPassword)
		})
	})

	return r
}
