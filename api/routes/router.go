package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/assetdesk/assetdesk-backend/api/controllers"
	"github.com/assetdesk/assetdesk-backend/api/middleware"
	"github.com/assetdesk/assetdesk-backend/internal/audit"
	"github.com/assetdesk/assetdesk-backend/internal/auth"
	"github.com/assetdesk/assetdesk-backend/internal/items"
	"github.com/assetdesk/assetdesk-backend/internal/persons"
	"github.com/assetdesk/assetdesk-backend/internal/transfer"
	"github.com/assetdesk/assetdesk-backend/internal/users"
	"github.com/assetdesk/assetdesk-backend/pkg/auth/session"
	"github.com/assetdesk/assetdesk-backend/pkg/config"
	"github.com/assetdesk/assetdesk-backend/pkg/db"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
	"github.com/assetdesk/assetdesk-backend/pkg/metrics"
	pkgredis "github.com/assetdesk/assetdesk-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             db.Pinger
	Redis          *pkgredis.Client
	SessionManager sessionManager
	MetricsReg     *prometheus.Registry
	HTTPMetrics    *metrics.HTTPMetrics

	AuthService     auth.Service
	PersonService   persons.Service
	ItemService     items.Service
	UserService     users.Service
	TransferService transfer.Service
	AuditService    audit.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
		middleware.Metrics(deps.HTTPMetrics),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUsernameLimit,
	)

	// A typed-nil *redis.Client must stay nil once it crosses into the
	// middleware interfaces.
	var idemStore pkgredis.IdempotencyStore
	loginLimiter := middleware.AuthRateLimit(loginPolicy, nil, logg)
	readyHandler := controllers.HealthReady(cfg, deps.DB, nil, logg)
	if deps.Redis != nil {
		idemStore = deps.Redis
		loginLimiter = middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)
		readyHandler = controllers.HealthReady(cfg, deps.DB, deps.Redis, logg)
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", readyHandler)
	})

	if deps.MetricsReg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsReg, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(loginLimiter).Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.AuthService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
			r.Post("/logout", controllers.AuthLogout(deps.AuthService, logg))
			r.Post("/change-password", controllers.AuthChangePassword(deps.UserService, logg))
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionManager, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/v1/persons", func(r chi.Router) {
			r.Get("/", controllers.ListPersons(deps.PersonService, logg))
			r.Get("/{personId}", controllers.GetPerson(deps.PersonService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("admin", logg))
				r.Post("/", controllers.CreatePerson(deps.PersonService, logg))
				r.Put("/{personId}", controllers.UpdatePerson(deps.PersonService, logg))
				r.Delete("/{personId}", controllers.DeletePerson(deps.PersonService, logg))
				r.Post("/import", controllers.ImportPersons(deps.TransferService, logg, cfg.Import.MaxUploadMB))
				r.Get("/export", controllers.ExportPersons(deps.TransferService, logg))
			})
		})

		r.Route("/v1/items", func(r chi.Router) {
			r.Get("/", controllers.ListItems(deps.ItemService, logg))
			r.Get("/{itemId}", controllers.GetItem(deps.ItemService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("admin", logg))
				r.Post("/", controllers.CreateItem(deps.ItemService, logg))
				r.Put("/{itemId}", controllers.UpdateItem(deps.ItemService, logg))
				r.Delete("/{itemId}", controllers.DeleteItem(deps.ItemService, logg))
			})
		})

		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", controllers.AdminListUsers(deps.UserService, logg))
				r.Post("/", controllers.AdminCreateUser(deps.UserService, logg))
				r.Post("/{userId}/reset-password", controllers.AdminResetPassword(deps.UserService, logg))
			})

			r.Get("/audit-logs", controllers.AdminListAuditLogs(deps.AuditService, logg))
		})
	})

	return r
}
