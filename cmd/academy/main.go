package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/pride-academy/academy/internal/access"
	"github.com/pride-academy/academy/internal/analytics"
	"github.com/pride-academy/academy/internal/app"
	"github.com/pride-academy/academy/internal/auth"
	"github.com/pride-academy/academy/internal/certification"
	"github.com/pride-academy/academy/internal/exams"
	"github.com/pride-academy/academy/internal/notifications"
	"github.com/pride-academy/academy/internal/observability"
	"github.com/pride-academy/academy/internal/onboarding"
	"github.com/pride-academy/academy/internal/shared"
	"github.com/pride-academy/academy/internal/tasks"
	"github.com/pride-academy/academy/internal/users"
	"github.com/pride-academy/academy/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	// The permission table is code, verify its totality before serving a
	// single request.
	if err := access.ValidateTable(); err != nil {
		slog.Default().Error("permission table", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "pride_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	usersRepo := users.NewRepository(dbpool)
	resolver := access.NewResolver(usersRepo, logger, access.ResolverConfig{
		TTL:          cfg.PermissionTTL,
		FetchTimeout: cfg.PermissionFetchTimeout,
	})
	guard := access.Guard{
		Resolver: resolver,
		Logger:   logger,
		Bypass:   cfg.GuardBypass,
		Metrics:  metrics,
	}
	if cfg.GuardBypass {
		logger.Warn("access guard bypass enabled, permission checks are off")
	}

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	notificationsRepo := notifications.NewRepository(dbpool)
	notificationsService := notifications.NewService(notificationsRepo, logger)

	usersService := users.NewService(usersRepo, auditLogger, notificationsService, resolver)
	usersHandler := users.NewHandler(logger, usersService, guard)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, notificationsService, jobClient, auth.ServiceConfig{
		ResetTokenSecret: cfg.ResetTokenSecret,
		ResetTokenTTL:    cfg.ResetTokenTTL,
		FrontendBaseURL:  cfg.FrontendBaseURL,
	})
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, resolver)

	accessHandler := access.NewHandler(logger, resolver, guard)

	onboardingRepo := onboarding.NewRepository(dbpool)
	onboardingService := onboarding.NewService(onboardingRepo, notificationsService, logger)
	onboardingHandler := onboarding.NewHandler(logger, onboardingService, guard)

	tasksRepo := tasks.NewRepository(dbpool)
	tasksService := tasks.NewService(tasksRepo, notificationsService, auditLogger, logger)
	tasksHandler := tasks.NewHandler(logger, tasksService, resolver, guard)

	certificationRepo := certification.NewRepository(dbpool)
	certificationService := certification.NewService(certificationRepo, notificationsService, auditLogger, logger)
	certificationHandler := certification.NewHandler(logger, certificationService, guard)

	examsRepo := exams.NewRepository(dbpool)
	examsService := exams.NewService(examsRepo, notificationsService, certificationService, auditLogger, logger)
	examsHandler := exams.NewHandler(logger, examsService, resolver, guard)

	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	if err := analyticsCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("analytics cache subscription", slog.Any("error", err))
	}
	analyticsService := analytics.NewService(dbpool, analyticsCache, tasksService, certificationService, onboardingService, logger)
	analyticsHandler := analytics.NewHandler(logger, analyticsService, guard)

	notificationsHandler := notifications.NewHandler(logger, notificationsService, resolver, guard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,

		AuthHandler:          authHandler,
		AccessHandler:        accessHandler,
		UsersHandler:         usersHandler,
		OnboardingHandler:    onboardingHandler,
		TasksHandler:         tasksHandler,
		ExamsHandler:         examsHandler,
		CertificationHandler: certificationHandler,
		NotificationsHandler: notificationsHandler,
		AnalyticsHandler:     analyticsHandler,
		JobHandler:           jobHandler,

		Metrics: metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AppRequestTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
