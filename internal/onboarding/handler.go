package onboarding

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pride-academy/academy/internal/access"
	"github.com/pride-academy/academy/internal/shared"
)

// Handler wires HTTP endpoints for the onboarding program.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     access.Guard
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard access.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers onboarding routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAuth())
		r.Get("/program", h.program)
		r.Get("/progress", h.ownProgress)
		r.Post("/days/{day}/tasks/{taskID}/toggle", h.toggleTask)
		r.Post("/days/{day}/test", h.submitTest)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(access.SectionUserManagement, "view"))
		r.Get("/progress/{userID}", h.userProgress)
	})
}

type dayResponse struct {
	Number      int                `json:"number"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Tasks       []DayTask          `json:"tasks"`
	Questions   []questionResponse `json:"questions"`
	Materials   []Material         `json:"materials"`
}

type questionResponse struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// program returns the full track with answer keys stripped.
func (h *Handler) program(w http.ResponseWriter, r *http.Request) {
	out := make([]dayResponse, 0, len(Program))
	for _, day := range Program {
		questions := make([]questionResponse, 0, len(day.Questions))
		for _, q := range day.Questions {
			questions = append(questions, questionResponse{ID: q.ID, Text: q.Text, Options: q.Options})
		}
		out = append(out, dayResponse{
			Number:      day.Number,
			Title:       day.Title,
			Description: day.Description,
			Tasks:       day.Tasks,
			Questions:   questions,
			Materials:   day.Materials,
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"days": out, "passThreshold": PassThreshold})
}

func (h *Handler) ownProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := access.CurrentUserID(r)
	if !ok {
		shared.WriteJSON(w, http.StatusUnauthorized, shared.APIError{Error: "Требуется вход в систему"})
		return
	}
	h.writeProgress(w, r, userID)
}

func (h *Handler) userProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.APIError{Error: "Некорректный идентификатор"})
		return
	}
	h.writeProgress(w, r, userID)
}

func (h *Handler) writeProgress(w http.ResponseWriter, r *http.Request, userID int64) {
	p, err := h.service.ProgressFor(r.Context(), userID)
	if err != nil {
		h.logger.Error("load onboarding progress", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, progressPayload(p))
}

func (h *Handler) toggleTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := access.CurrentUserID(r)
	if !ok {
		shared.WriteJSON(w, http.StatusUnauthorized, shared.APIError{Error: "Требуется вход в систему"})
		return
	}
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.APIError{Error: "Некорректный номер дня"})
		return
	}
	p, err := h.service.ToggleTask(r.Context(), userID, day, chi.URLParam(r, "taskID"))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.WriteJSON(w, http.StatusNotFound, shared.APIError{Error: "День или задача не найдены"})
			return
		}
		h.logger.Error("toggle onboarding task", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, progressPayload(p))
}

type testSubmission struct {
	Answers map[string]int `json:"answers" validate:"required"`
}

func (h *Handler) submitTest(w http.ResponseWriter, r *http.Request) {
	userID, ok := access.CurrentUserID(r)
	if !ok {
		shared.WriteJSON(w, http.StatusUnauthorized, shared.APIError{Error: "Требуется вход в систему"})
		return
	}
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.APIError{Error: "Некорректный номер дня"})
		return
	}
	var req testSubmission
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	result, err := h.service.SubmitTest(r.Context(), userID, day, req.Answers)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.WriteJSON(w, http.StatusNotFound, shared.APIError{Error: "День не найден"})
			return
		}
		h.logger.Error("submit onboarding test", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func progressPayload(p *Progress) map[string]any {
	return map[string]any{
		"progress":     p,
		"completion":   OverallCompletion(p),
		"achievements": ComputeAchievements(p),
	}
}
