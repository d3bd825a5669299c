package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/carteira-app/carteira/internal/accounts"
	"github.com/carteira-app/carteira/internal/auth"
	"github.com/carteira-app/carteira/internal/categories"
	"github.com/carteira-app/carteira/internal/observability"
	"github.com/carteira-app/carteira/internal/shared"
	"github.com/carteira-app/carteira/internal/transactions"
	"github.com/carteira-app/carteira/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	SessionManager      *shared.SessionManager
	AuthHandler         *auth.Handler
	AccountsHandler     *accounts.Handler
	CategoriesHandler   *categories.Handler
	TransactionsHandler *transactions.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router with Carteira defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
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

	params.AuthHandler.MountPublicRoutes(r)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireUser(params.Logger, params.SessionManager))

		params.AuthHandler.MountRoutes(r)
		params.AccountsHandler.MountRoutes(r)
		params.CategoriesHandler.MountRoutes(r)
		params.TransactionsHandler.MountRoutes(r)
		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	return r
}
