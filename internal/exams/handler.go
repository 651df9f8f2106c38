package exams

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pride-academy/academy/internal/access"
	"github.com/pride-academy/academy/internal/shared"
)

// Handler wires HTTP endpoints for exams and attempts.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	resolver  *access.Resolver
	guard     access.Guard
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, resolver *access.Resolver, guard access.Guard) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		resolver:  resolver,
		guard:     guard,
		validator: validator.New(),
	}
}

// MountRoutes registers exam routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(access.SectionExams, "view"))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(access.SectionExams, "take"))
		r.Post("/{id}/start", h.start)
		r.Post("/attempts/{attemptID}/submit", h.submit)
		r.Get("/{id}/attempts", h.ownAttempts)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(access.SectionExams, "create"))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(access.SectionExams, "grade"))
		r.Get("/{id}/attempts/all", h.allAttempts)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(access.SectionExams, "analyze"))
		r.Get("/{id}/stats", h.stats)
	})
}

type questionPayload struct {
	ID      string   `json:"id" validate:"required"`
	Text    string   `json:"text" validate:"required"`
	Options []string `json:"options" validate:"required,min=2"`
	Correct int      `json:"correct" validate:"gte=0"`
	Points  int      `json:"points" validate:"gte=0"`
}

type examRequest struct {
	Title            string            `json:"title" validate:"required,max=200"`
	Description      string            `json:"description" validate:"max=5000"`
	Questions        []questionPayload `json:"questions" validate:"required,min=1,dive"`
	PassingScore     int               `json:"passingScore" validate:"required,gte=1,lte=100"`
	TimeLimitSeconds int               `json:"timeLimitSeconds" validate:"gte=0"`
	MaxAttempts      int               `json:"maxAttempts" validate:"gte=0"`
	Published        bool              `json:"published"`
}

type examSummary struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	QuestionCount int       `json:"questionCount"`
	PassingScore  int       `json:"passingScore"`
	TimeLimit     int       `json:"timeLimitSeconds"`
	MaxAttempts   int       `json:"maxAttempts"`
	Published     bool      `json:"published"`
	CreatedAt     time.Time `json:"createdAt"`
}

func toSummary(e Exam) examSummary {
	return examSummary{
		ID:            e.ID,
		Title:         e.Title,
		Description:   e.Description,
		QuestionCount: len(e.Questions),
		PassingScore:  e.PassingScore,
		TimeLimit:     int(e.TimeLimit.Seconds()),
		MaxAttempts:   e.MaxAttempts,
		Published:     e.Published,
		CreatedAt:     e.CreatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), h.canCreate(r))
	if err != nil {
		h.logger.Error("list exams", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]examSummary, 0, len(items))
	for _, e := range items {
		out = append(out, toSummary(e))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"exams": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	exam, ok := h.loadExam(w, r)
	if !ok {
		return
	}
	if !exam.Published && !h.canCreate(r) {
		shared.WriteJSON(w, http.StatusNotFound, shared.APIError{Error: "Экзамен не найден"})
		return
	}
	shared.WriteJSON(w, http.StatusOK, toSummary(*exam))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req examRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	creatorID, _ := access.CurrentUserID(r)
	id, err := h.service.Create(r.Context(), CreateInput{
		Title:        req.Title,
		Description:  req.Description,
		Questions:    toQuestions(req.Questions),
		PassingScore: req.PassingScore,
		TimeLimit:    time.Duration(req.TimeLimitSeconds) * time.Second,
		MaxAttempts:  req.MaxAttempts,
		Published:    req.Published,
		CreatorID:    creatorID,
	})
	if err != nil {
		h.logger.Error("create exam", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req examRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	actorID, _ := access.CurrentUserID(r)
	err := h.service.Update(r.Context(), actorID, Exam{
		ID:           id,
		Title:        req.Title,
		Description:  req.Description,
		Questions:    toQuestions(req.Questions),
		PassingScore: req.PassingScore,
		TimeLimit:    time.Duration(req.TimeLimitSeconds) * time.Second,
		MaxAttempts:  req.MaxAttempts,
		Published:    req.Published,
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.WriteJSON(w, http.StatusNotFound, shared.APIError{Error: "Экзамен не найден"})
			return
		}
		h.logger.Error("update exam", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actorID, _ := access.CurrentUserID(r)
	if err := h.service.Delete(r.Context(), actorID, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.WriteJSON(w, http.StatusNotFound, shared.APIError{Error: "Экзамен не найден"})
			return
		}
		h.logger.Error("delete exam", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type attemptQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID, _ := access.CurrentUserID(r)
	attempt, exam, err := h.service.Start(r.Context(), examID, userID)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNotFound):
			shared.WriteJSON(w, http.StatusNotFound, shared.APIError{Error: "Экзамен не найден"})
		case errors.Is(err, ErrAttemptsExhausted):
			shared.WriteJSON(w, http.StatusConflict, shared.APIError{Error: "Попытки исчерпаны"})
		default:
			h.logger.Error("start attempt", slog.Any("error", err))
			shared.WriteError(w, http.StatusInternalServerError, err)
		}
		return
	}
	// Answer keys stay server-side.
	questions := make([]attemptQuestion, 0, len(exam.Questions))
	for _, q := range exam.Questions {
		questions = append(questions, attemptQuestion{ID: q.ID, Text: q.Text, Options: q.Options})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"attemptId":        attempt.ID,
		"startedAt":        attempt.StartedAt,
		"timeLimitSeconds": int(exam.TimeLimit.Seconds()),
		"questions":        questions,
	})
}

type submitRequest struct {
	Answers map[string]int `json:"answers" validate:"required"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	attemptID, ok := pathID(w, r, "attemptID")
	if !ok {
		return
	}
	var req submitRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	userID, _ := access.CurrentUserID(r)
	attempt, err := h.service.Submit(r.Context(), attemptID, userID, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNotFound):
			shared.WriteJSON(w, http.StatusNotFound, shared.APIError{Error: "Попытка не найдена"})
		case errors.Is(err, shared.ErrForbidden):
			shared.WriteJSON(w, http.StatusForbidden, shared.APIError{Error: shared.UserSafeMessage(shared.ErrForbidden)})
		case errors.Is(err, ErrAlreadySubmitted):
			shared.WriteJSON(w, http.StatusConflict, shared.APIError{Error: "Попытка уже завершена"})
		case errors.Is(err, ErrTimeExpired):
			shared.WriteJSON(w, http.StatusConflict, shared.APIError{Error: "Время экзамена истекло"})
		default:
			h.logger.Error("submit attempt", slog.Any("error", err))
			shared.WriteError(w, http.StatusInternalServerError, err)
		}
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"score":  attempt.Score,
		"passed": attempt.Passed,
	})
}

type attemptResponse struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"userId"`
	Score       int        `json:"score"`
	Passed      bool       `json:"passed"`
	StartedAt   time.Time  `json:"startedAt"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
}

func (h *Handler) ownAttempts(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID, _ := access.CurrentUserID(r)
	items, err := h.service.Attempts(r.Context(), examID, userID)
	if err != nil {
		h.logger.Error("list attempts", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"attempts": toAttemptResponses(items)})
}

func (h *Handler) allAttempts(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	items, err := h.service.AllAttempts(r.Context(), examID)
	if err != nil {
		h.logger.Error("list all attempts", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"attempts": toAttemptResponses(items)})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	stats, err := h.service.Stats(r.Context(), examID)
	if err != nil {
		h.logger.Error("exam stats", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) loadExam(w http.ResponseWriter, r *http.Request) (*Exam, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	exam, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.WriteJSON(w, http.StatusNotFound, shared.APIError{Error: "Экзамен не найден"})
			return nil, false
		}
		h.logger.Error("load exam", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return exam, true
}

func (h *Handler) canCreate(r *http.Request) bool {
	userID, ok := access.CurrentUserID(r)
	if !ok {
		return false
	}
	res, ok := h.resolver.Resolve(r.Context(), userID)
	if !ok {
		return false
	}
	return res.Permissions.Allows(access.SectionExams, "create")
}

func toQuestions(payload []questionPayload) []Question {
	out := make([]Question, 0, len(payload))
	for _, q := range payload {
		out = append(out, Question{ID: q.ID, Text: q.Text, Options: q.Options, Correct: q.Correct, Points: q.Points})
	}
	return out
}

func toAttemptResponses(items []Attempt) []attemptResponse {
	out := make([]attemptResponse, 0, len(items))
	for _, a := range items {
		out = append(out, attemptResponse{
			ID:          a.ID,
			UserID:      a.UserID,
			Score:       a.Score,
			Passed:      a.Passed,
			StartedAt:   a.StartedAt,
			SubmittedAt: a.SubmittedAt,
		})
	}
	return out
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.APIError{Error: "Некорректный идентификатор"})
		return 0, false
	}
	return id, true
}
