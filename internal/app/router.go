package app

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	audithttp "github.com/agrotrade/agrotrade/internal/audit/http"
	"github.com/agrotrade/agrotrade/internal/auth"
	"github.com/agrotrade/agrotrade/internal/companies"
	"github.com/agrotrade/agrotrade/internal/dashboard"
	"github.com/agrotrade/agrotrade/internal/observability"
	"github.com/agrotrade/agrotrade/internal/orders"
	"github.com/agrotrade/agrotrade/internal/platform/httpx"
	"github.com/agrotrade/agrotrade/internal/products"
	"github.com/agrotrade/agrotrade/internal/queries"
	"github.com/agrotrade/agrotrade/internal/rbac"
	"github.com/agrotrade/agrotrade/internal/reports"
	"github.com/agrotrade/agrotrade/internal/shared"
	"github.com/agrotrade/agrotrade/internal/users"
	"github.com/agrotrade/agrotrade/jobs"
	"github.com/agrotrade/agrotrade/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Verifier       auth.Verifier
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics

	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	CompaniesHandler   *companies.Handler
	ProductsHandler    *products.Handler
	QueriesHandler     *queries.Handler
	OrdersHandler      *orders.Handler
	DashboardHandler   *dashboard.Handler
	ReportsHandler     *reports.Handler
	ReportHandler      *report.Handler
	JobHandler         *jobs.Handler
	PermissionsHandler *rbac.PermissionsHandler
	AuditHandler       *audithttp.Handler
}

// NewRouter constructs the chi.Router with API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Verifier: params.Verifier,
		Metrics:  params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.RespondError(w, shared.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		if params.UsersHandler != nil {
			r.Route("/users", func(r chi.Router) {
				params.UsersHandler.MountRoutes(r)
				if params.CompaniesHandler != nil {
					params.CompaniesHandler.MountRoutes(r)
				}
			})
		}
		if params.ProductsHandler != nil {
			r.Route("/products", params.ProductsHandler.MountRoutes)
		}
		if params.QueriesHandler != nil {
			r.Route("/queries", params.QueriesHandler.MountRoutes)
		}
		if params.OrdersHandler != nil {
			r.Route("/orders", func(r chi.Router) {
				params.OrdersHandler.MountRoutes(r)
				if params.ReportsHandler != nil {
					params.ReportsHandler.MountOrderRoutes(r)
				}
			})
		}
		if params.DashboardHandler != nil {
			r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		r.Route("/reports", func(r chi.Router) {
			if params.ReportHandler != nil {
				r.With(params.RBACMiddleware.RequireAny(shared.PermReportsExport)).Group(params.ReportHandler.MountRoutes)
			}
			if params.ReportsHandler != nil {
				params.ReportsHandler.MountRoutes(r)
			}
		})
		if params.JobHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(params.RBACMiddleware.RequireAny(shared.PermJobsView))
				params.JobHandler.MountRoutes(r)
			})
		}
		if params.PermissionsHandler != nil {
			r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
	})

	if params.Config != nil && params.Config.StorageDir != "" {
		fileServer := http.StripPrefix("/media/", http.FileServer(http.Dir(params.Config.StorageDir)))
		if _, err := os.Stat(params.Config.StorageDir); err != nil {
			params.Logger.Warn("media directory not available", slog.String("dir", params.Config.StorageDir), slog.Any("error", err))
		}
		r.Handle("/media/*", mediaCacheHandler(fileServer))
	}

	return r
}

// mediaCacheHandler lets browsers cache uploaded images for a day.
func mediaCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		next.ServeHTTP(w, r)
	})
}
