package certification

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pride-academy/academy/internal/access"
	"github.com/pride-academy/academy/internal/shared"
)

// Handler wires HTTP endpoints for certificates.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   access.Guard
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard access.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers certificate routes on the provided router.
// Validation is public so a printed number can be checked without an
// account.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/validate/{number}", h.validate)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(access.SectionCertification, "view"))
		r.Get("/mine", h.mine)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(access.SectionCertification, "issue"))
		r.Get("/", h.registry)
		r.Post("/{number}/revoke", h.revoke)
	})
}

type certificateResponse struct {
	Number   string    `json:"number"`
	UserID   int64     `json:"userId"`
	ExamID   int64     `json:"examId"`
	Title    string    `json:"title"`
	Score    int       `json:"score"`
	IssuedAt time.Time `json:"issuedAt"`
	Valid    bool      `json:"valid"`
}

func toResponse(c Certificate) certificateResponse {
	return certificateResponse{
		Number:   c.Number,
		UserID:   c.UserID,
		ExamID:   c.ExamID,
		Title:    c.Title,
		Score:    c.Score,
		IssuedAt: c.IssuedAt,
		Valid:    !c.Revoked,
	}
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	cert, err := h.service.Validate(r.Context(), number)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.WriteJSON(w, http.StatusNotFound, map[string]any{
				"valid": false,
				"error": "Сертификат не найден",
			})
			return
		}
		h.logger.Error("validate certificate", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(*cert))
}

func (h *Handler) mine(w http.ResponseWriter, r *http.Request) {
	userID, ok := access.CurrentUserID(r)
	if !ok {
		shared.WriteJSON(w, http.StatusUnauthorized, shared.APIError{Error: "Требуется вход в систему"})
		return
	}
	items, err := h.service.ForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list certificates", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]certificateResponse, 0, len(items))
	for _, c := range items {
		out = append(out, toResponse(c))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"certificates": out})
}

func (h *Handler) registry(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("perPage"))
	items, pagination, err := h.service.Registry(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("certificate registry", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]certificateResponse, 0, len(items))
	for _, c := range items {
		out = append(out, toResponse(c))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"certificates": out, "pagination": pagination})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	actorID, _ := access.CurrentUserID(r)
	number := chi.URLParam(r, "number")
	if err := h.service.Revoke(r.Context(), actorID, number); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.WriteJSON(w, http.StatusNotFound, shared.APIError{Error: "Сертификат не найден"})
			return
		}
		h.logger.Error("revoke certificate", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
