package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/codesagecoder/digital-marketplace/internal/auth"
	"github.com/codesagecoder/digital-marketplace/internal/catalog"
	"github.com/codesagecoder/digital-marketplace/internal/observability"
	"github.com/codesagecoder/digital-marketplace/internal/shared"
	"github.com/codesagecoder/digital-marketplace/internal/users"
	"github.com/codesagecoder/digital-marketplace/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthHandler    *auth.Handler
	AuthMiddleware *auth.Middleware
	CatalogHandler *catalog.Handler
	UsersHandler   *users.Handler
	JobsHandler    *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with marketplace defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	r.Use(params.AuthMiddleware.LoadPrincipal)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Group(func(g chi.Router) {
			// Tighter limit on credential endpoints.
			g.Use(httprate.LimitByIP(10, time.Minute))
			g.Route("/auth", params.AuthHandler.MountRoutes)
		})

		api.Route("/products", params.CatalogHandler.MountRoutes)

		api.Group(func(g chi.Router) {
			g.Use(auth.RequireAdmin)
			g.Route("/users", params.UsersHandler.MountRoutes)
			if params.JobsHandler != nil {
				g.Route("/jobs", params.JobsHandler.MountRoutes)
			}
		})
	})

	return r
}
