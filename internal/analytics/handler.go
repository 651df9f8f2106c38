package analytics

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pride-academy/academy/internal/access"
	"github.com/pride-academy/academy/internal/shared"
)

// Handler wires HTTP endpoints for dashboard analytics.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   access.Guard
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard access.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers analytics routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAuth())
		r.Get("/me", h.userProgress)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(access.SectionExams, "analyze"))
		r.Get("/admin", h.adminStats)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(access.SectionUserManagement, "view"))
		r.Get("/activity", h.activity)
		r.Get("/users/{userID}", h.namedUserProgress)
	})
}

func (h *Handler) userProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := access.CurrentUserID(r)
	if !ok {
		shared.WriteJSON(w, http.StatusUnauthorized, shared.APIError{Error: "Требуется вход в систему"})
		return
	}
	h.writeUserProgress(w, r, userID)
}

func (h *Handler) namedUserProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.APIError{Error: "Некорректный идентификатор"})
		return
	}
	h.writeUserProgress(w, r, userID)
}

func (h *Handler) writeUserProgress(w http.ResponseWriter, r *http.Request, userID int64) {
	progress, err := h.service.UserProgressFor(r.Context(), userID)
	if err != nil {
		h.logger.Error("user progress", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, progress)
}

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.AdminStatsFor(r.Context())
	if err != nil {
		h.logger.Error("admin stats", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) activity(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.service.RecentActivity(r.Context(), limit)
	if err != nil {
		h.logger.Error("recent activity", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"activity": items})
}
