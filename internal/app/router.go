package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weighops/weighops/internal/audit"
	"github.com/weighops/weighops/internal/auth"
	"github.com/weighops/weighops/internal/observability"
	"github.com/weighops/weighops/internal/orgs"
	"github.com/weighops/weighops/internal/permissions"
	"github.com/weighops/weighops/internal/roles"
	"github.com/weighops/weighops/internal/shifts"
	"github.com/weighops/weighops/internal/stations"
	"github.com/weighops/weighops/internal/users"
	"github.com/weighops/weighops/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Tokens             *auth.TokenManager
	AuthHandler        *auth.Handler
	PermissionsHandler *permissions.Handler
	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler
	OrgsHandler        *orgs.Handler
	StationsHandler    *stations.Handler
	ShiftsHandler      *shifts.Handler
	AuditHandler       *audit.Handler
	AuditRecorder      *audit.Recorder
	JobsHandler        *jobs.Handler
	Pool               *pgxpool.Pool
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Tokens:  params.Tokens,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if params.AuditRecorder != nil {
			r.Use(audit.Middleware(params.AuditRecorder, params.Logger))
		}
		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		r.Route("/roles", params.RolesHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/orgs", params.OrgsHandler.MountRoutes)
		r.Route("/stations", params.StationsHandler.MountRoutes)
		r.Route("/shifts", params.ShiftsHandler.MountRoutes)
		r.Route("/audit", params.AuditHandler.MountRoutes)
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
