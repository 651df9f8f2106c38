package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pride-academy/academy/internal/access"
	"github.com/pride-academy/academy/internal/analytics"
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

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler          *auth.Handler
	AccessHandler        *access.Handler
	UsersHandler         *users.Handler
	OnboardingHandler    *onboarding.Handler
	TasksHandler         *tasks.Handler
	ExamsHandler         *exams.Handler
	CertificationHandler *certification.Handler
	NotificationsHandler *notifications.Handler
	AnalyticsHandler     *analytics.Handler
	JobHandler           *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with platform defaults.
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
	r.Route("/access", params.AccessHandler.MountRoutes)
	r.Route("/users", params.UsersHandler.MountRoutes)
	r.Route("/onboarding", params.OnboardingHandler.MountRoutes)
	r.Route("/tasks", params.TasksHandler.MountRoutes)
	r.Route("/exams", params.ExamsHandler.MountRoutes)
	r.Route("/certificates", params.CertificationHandler.MountRoutes)
	r.Route("/notifications", params.NotificationsHandler.MountRoutes)
	r.Route("/analytics", params.AnalyticsHandler.MountRoutes)

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
