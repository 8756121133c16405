package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/weighops/weighops/internal/app"
	"github.com/weighops/weighops/internal/audit"
	"github.com/weighops/weighops/internal/auth"
	"github.com/weighops/weighops/internal/authz"
	"github.com/weighops/weighops/internal/observability"
	"github.com/weighops/weighops/internal/orgs"
	"github.com/weighops/weighops/internal/permissions"
	"github.com/weighops/weighops/internal/platform/cache"
	"github.com/weighops/weighops/internal/platform/db"
	"github.com/weighops/weighops/internal/roles"
	"github.com/weighops/weighops/internal/shifts"
	"github.com/weighops/weighops/internal/stations"
	"github.com/weighops/weighops/internal/users"
	"github.com/weighops/weighops/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	metrics := observability.NewMetrics()

	permissionRepo := permissions.NewRepository(dbpool)
	permissionCache := authz.NewPermissionCache(permissionRepo, cache.NewKV(redisClient), logger).
		WithTTL(cfg.PermissionCacheTTL).
		WithObserver(metrics)
	verifier := authz.NewVerifier(permissionCache, logger)
	registry := authz.NewRegistry()
	authorizer := authz.NewAuthorizer(verifier, registry, logger).WithObserver(metrics)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, tokens)
	authHandler := auth.NewHandler(logger, authService, verifier)

	permissionService := permissions.NewService(permissionRepo, permissionCache, logger)
	permissionsHandler := permissions.NewHandler(logger, permissionService, authorizer)

	roleRepo := roles.NewRepository(dbpool)
	roleService := roles.NewService(roleRepo, permissionCache, logger)
	rolesHandler := roles.NewHandler(logger, roleService, authorizer)

	userRepo := users.NewRepository(dbpool)
	userService := users.NewService(userRepo)
	usersHandler := users.NewHandler(logger, userService, authorizer)

	orgRepo := orgs.NewRepository(dbpool)
	orgsHandler := orgs.NewHandler(logger, orgRepo, authorizer)

	stationRepo := stations.NewRepository(dbpool)
	stationsHandler := stations.NewHandler(logger, stationRepo, authorizer)

	shiftStore := shifts.NewPgStore(dbpool)
	shiftService := shifts.NewService(shiftStore, logger)
	shiftsHandler := shifts.NewHandler(logger, shiftService, authorizer)

	auditRecorder := audit.NewRecorder(dbpool)
	auditService := audit.NewService(audit.NewPgTimelineStore(dbpool))
	auditHandler := audit.NewHandler(logger, auditService, authorizer)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Warn("init job client", slog.Any("error", err))
	} else {
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		if _, err := jobClient.EnqueuePermissionWarmup(ctx, jobs.PermissionWarmupPayload{IncludeRoles: true}); err != nil {
			logger.Warn("enqueue permission warmup", slog.Any("error", err))
		}
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Tokens:             tokens,
		AuthHandler:        authHandler,
		PermissionsHandler: permissionsHandler,
		RolesHandler:       rolesHandler,
		UsersHandler:       usersHandler,
		OrgsHandler:        orgsHandler,
		StationsHandler:    stationsHandler,
		ShiftsHandler:      shiftsHandler,
		AuditHandler:       auditHandler,
		AuditRecorder:      auditRecorder,
		JobsHandler:        jobsHandler,
		Pool:               dbpool,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
