package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/werkzeit/werkzeit/internal/auth"
	"github.com/werkzeit/werkzeit/internal/closing"
	"github.com/werkzeit/werkzeit/internal/export"
	"github.com/werkzeit/werkzeit/internal/invoices"
	"github.com/werkzeit/werkzeit/internal/masterdata"
	"github.com/werkzeit/werkzeit/internal/observability"
	"github.com/werkzeit/werkzeit/internal/profiles"
	"github.com/werkzeit/werkzeit/internal/rbac"
	"github.com/werkzeit/werkzeit/internal/shared"
	"github.com/werkzeit/werkzeit/internal/timesheet"
	"github.com/werkzeit/werkzeit/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware

	AuthHandler       *auth.Handler
	ProfilesHandler   *profiles.Handler
	TimesheetHandler  *timesheet.Handler
	ClosingHandler    *closing.Handler
	InvoicesHandler   *invoices.Handler
	ExportHandler     *export.Handler
	MasterdataHandler *masterdata.Handler

	JobsHandler *jobs.Handler
	Metrics     *observability.Metrics
}

// NewRouter constructs the chi.Router serving the HTTP API.
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

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/api", func(r chi.Router) {
		r.Use(params.RBACMiddleware.WithActor)

		r.Route("/records", params.TimesheetHandler.MountRoutes)
		r.Route("/closings", params.ClosingHandler.MountRoutes)
		r.Route("/invoices", params.InvoicesHandler.MountRoutes)
		r.Route("/exports", params.ExportHandler.MountRoutes)
		r.Route("/profiles", params.ProfilesHandler.MountRoutes)
		r.Route("/masterdata", params.MasterdataHandler.MountRoutes)
	})

	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
