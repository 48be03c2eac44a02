package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sokoline/sokoline/internal/auth"
	"github.com/sokoline/sokoline/internal/blog"
	"github.com/sokoline/sokoline/internal/catalog"
	"github.com/sokoline/sokoline/internal/ledger"
	"github.com/sokoline/sokoline/internal/observability"
	"github.com/sokoline/sokoline/internal/shared"
	"github.com/sokoline/sokoline/internal/suppliers"
	"github.com/sokoline/sokoline/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	CSRFManager      *shared.CSRFManager
	AuthHandler      *auth.Handler
	CatalogHandler   *catalog.Handler
	LedgerHandler    *ledger.Handler
	SuppliersHandler *suppliers.Handler
	BlogHandler      *blog.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Sokoline defaults.
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
	if params.CatalogHandler != nil {
		params.CatalogHandler.MountRoutes(r)
	}
	if params.LedgerHandler != nil {
		params.LedgerHandler.MountRoutes(r)
	}
	if params.SuppliersHandler != nil {
		params.SuppliersHandler.MountRoutes(r)
	}
	if params.BlogHandler != nil {
		r.Route("/blog", params.BlogHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
