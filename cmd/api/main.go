package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/assetdesk/assetdesk-backend/api/routes"
	"github.com/assetdesk/assetdesk-backend/internal/audit"
	authsvc "github.com/assetdesk/assetdesk-backend/internal/auth"
	"github.com/assetdesk/assetdesk-backend/internal/items"
	"github.com/assetdesk/assetdesk-backend/internal/persons"
	"github.com/assetdesk/assetdesk-backend/internal/transfer"
	"github.com/assetdesk/assetdesk-backend/internal/users"
	"github.com/assetdesk/assetdesk-backend/pkg/auth/session"
	"github.com/assetdesk/assetdesk-backend/pkg/config"
	"github.com/assetdesk/assetdesk-backend/pkg/db"
	"github.com/assetdesk/assetdesk-backend/pkg/logger"
	"github.com/assetdesk/assetdesk-backend/pkg/metrics"
	"github.com/assetdesk/assetdesk-backend/pkg/migrate"
	"github.com/assetdesk/assetdesk-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	auditRepo := audit.NewRepository(dbClient.DB())
	recorder, err := audit.NewRecorder(auditRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit recorder", err)
		os.Exit(1)
	}

	auditService, err := audit.NewService(auditRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	personRepo := persons.NewRepository(dbClient.DB())
	personService, err := persons.NewService(persons.ServiceParams{
		Repo:     personRepo,
		Tx:       dbClient,
		Recorder: recorder,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create person service", err)
		os.Exit(1)
	}

	itemService, err := items.NewService(items.ServiceParams{
		Repo:     items.NewRepository(dbClient.DB()),
		Tx:       dbClient,
		Recorder: recorder,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create item service", err)
		os.Exit(1)
	}

	userRepo := users.NewRepository(dbClient.DB())
	userService, err := users.NewService(users.ServiceParams{
		Repo:        userRepo,
		Tx:          dbClient,
		Recorder:    recorder,
		PasswordCfg: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	created, err := userService.EnsureBootstrapAdmin(context.Background(), cfg.Bootstrap)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap admin user", err)
		os.Exit(1)
	}
	if created {
		logg.Info(logg.WithField(context.Background(), "username", cfg.Bootstrap.AdminUsername), "bootstrapped admin user")
	}

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		UserRepo:       userRepo,
		Tx:             dbClient,
		SessionManager: sessionManager,
		Recorder:       recorder,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	transferService, err := transfer.NewService(transfer.ServiceParams{
		PersonRepo: personRepo,
		Tx:         dbClient,
		Recorder:   recorder,
		ImportCfg:  cfg.Import,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create transfer service", err)
		os.Exit(1)
	}

	metricsReg := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(metricsReg)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			SessionManager: sessionManager,
			MetricsReg:     metricsReg,
			HTTPMetrics:    httpMetrics,

			AuthService:     authService,
			PersonService:   personService,
			ItemService:     itemService,
			UserService:     userService,
			TransferService: transferService,
			AuditService:    auditService,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
