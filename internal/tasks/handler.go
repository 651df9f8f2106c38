package tasks

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

// Handler wires HTTP endpoints for task management.
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

// MountRoutes registers task routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(access.SectionTasks, "view"))
		r.Get("/", h.list)
		r.Get("/summary", h.summary)
		r.Get("/{id}", h.get)
		r.Get("/{id}/comments", h.comments)
		r.Post("/{id}/comments", h.addComment)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(access.SectionTasks, "complete"))
		r.Post("/{id}/status", h.changeStatus)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(access.SectionTasks, "create"))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.remove)
	})
}

type taskResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	CreatorID   int64      `json:"creatorId"`
	AssigneeID  int64      `json:"assigneeId"`
	DueAt       *time.Time `json:"dueAt,omitempty"`
	Overdue     bool       `json:"overdue"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func toResponse(t Task, now time.Time) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		CreatorID:   t.CreatorID,
		AssigneeID:  t.AssigneeID,
		DueAt:       t.DueAt,
		Overdue:     t.IsOverdue(now),
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var f Filter
	q := r.URL.Query()
	if raw := q.Get("assigneeId"); raw != "" {
		f.AssigneeID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if raw := q.Get("creatorId"); raw != "" {
		f.CreatorID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if raw := q.Get("status"); raw != "" {
		status, err := ParseStatus(raw)
		if err != nil {
			shared.WriteJSON(w, http.StatusBadRequest, shared.APIError{Error: "Неизвестный статус"})
			return
		}
		f.Status = status
	}
	// Without the assign permission a user only sees their own tasks.
	if !h.canAssign(r) {
		userID, _ := access.CurrentUserID(r)
		f.AssigneeID = userID
	}
	items, err := h.service.List(r.Context(), f)
	if err != nil {
		h.logger.Error("list tasks", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	now := time.Now()
	out := make([]taskResponse, 0, len(items))
	for _, t := range items {
		out = append(out, toResponse(t, now))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"tasks": out})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	userID, _ := access.CurrentUserID(r)
	counts, err := h.service.CountByStatus(r.Context(), userID)
	if err != nil {
		h.logger.Error("task summary", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"counts": counts})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(*task, time.Now()))
}

type createRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Priority    string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	AssigneeID  int64  `json:"assigneeId" validate:"required"`
	DueAt       string `json:"dueAt" validate:"omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	dueAt, ok := parseDue(w, req.DueAt)
	if !ok {
		return
	}
	creatorID, _ := access.CurrentUserID(r)
	task, err := h.service.Create(r.Context(), CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    Priority(req.Priority),
		CreatorID:   creatorID,
		AssigneeID:  req.AssigneeID,
		DueAt:       dueAt,
	})
	if err != nil {
		h.logger.Error("create task", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, toResponse(*task, time.Now()))
}

type updateRequest struct {
	Title       string `json:"title" validate:"omitempty,max=200"`
	Description string `json:"description" validate:"max=5000"`
	Priority    string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	AssigneeID  int64  `json:"assigneeId"`
	DueAt       string `json:"dueAt" validate:"omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	dueAt, ok := parseDue(w, req.DueAt)
	if !ok {
		return
	}
	actorID, _ := access.CurrentUserID(r)
	task, err := h.service.Update(r.Context(), actorID, id, UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    Priority(req.Priority),
		AssigneeID:  req.AssigneeID,
		DueAt:       dueAt,
	})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.WriteJSON(w, http.StatusNotFound, shared.APIError{Error: "Задача не найдена"})
			return
		}
		h.logger.Error("update task", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(*task, time.Now()))
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=TODO IN_PROGRESS REVIEW COMPLETED BLOCKED"`
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	actorID, _ := access.CurrentUserID(r)
	task, err := h.service.ChangeStatus(r.Context(), actorID, id, Status(req.Status), h.canReview(r))
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrNotFound):
			shared.WriteJSON(w, http.StatusNotFound, shared.APIError{Error: "Задача не найдена"})
		case errors.Is(err, shared.ErrForbidden):
			shared.WriteJSON(w, http.StatusForbidden, shared.APIError{Error: shared.UserSafeMessage(shared.ErrForbidden)})
		case errors.Is(err, ErrTransition):
			shared.WriteJSON(w, http.StatusConflict, shared.APIError{Error: "Недопустимый переход статуса"})
		default:
			h.logger.Error("change task status", slog.Any("error", err))
			shared.WriteError(w, http.StatusInternalServerError, err)
		}
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(*task, time.Now()))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	actorID, _ := access.CurrentUserID(r)
	if err := h.service.Delete(r.Context(), actorID, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.WriteJSON(w, http.StatusNotFound, shared.APIError{Error: "Задача не найдена"})
			return
		}
		h.logger.Error("delete task", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type commentResponse struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *Handler) comments(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	items, err := h.service.Comments(r.Context(), task.ID)
	if err != nil {
		h.logger.Error("list comments", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]commentResponse, 0, len(items))
	for _, c := range items {
		out = append(out, commentResponse{ID: c.ID, AuthorID: c.AuthorID, Body: c.Body, CreatedAt: c.CreatedAt})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"comments": out})
}

type commentRequest struct {
	Body string `json:"body" validate:"required,max=2000"`
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req commentRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	authorID, _ := access.CurrentUserID(r)
	comment, err := h.service.Comment(r.Context(), authorID, id, req.Body)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.WriteJSON(w, http.StatusNotFound, shared.APIError{Error: "Задача не найдена"})
			return
		}
		h.logger.Error("add comment", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, commentResponse{
		ID:        comment.ID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	})
}

func (h *Handler) loadTask(w http.ResponseWriter, r *http.Request) (*Task, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	task, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.WriteJSON(w, http.StatusNotFound, shared.APIError{Error: "Задача не найдена"})
			return nil, false
		}
		h.logger.Error("load task", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return task, true
}

func (h *Handler) canReview(r *http.Request) bool {
	return h.hasPermission(r, access.SectionTasks, "review")
}

func (h *Handler) canAssign(r *http.Request) bool {
	return h.hasPermission(r, access.SectionTasks, "assign")
}

func (h *Handler) hasPermission(r *http.Request, section, action string) bool {
	userID, ok := access.CurrentUserID(r)
	if !ok {
		return false
	}
	res, ok := h.resolver.Resolve(r.Context(), userID)
	if !ok {
		return false
	}
	return res.Permissions.Allows(section, action)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.APIError{Error: "Некорректный идентификатор"})
		return 0, false
	}
	return id, true
}

func parseDue(w http.ResponseWriter, raw string) (*time.Time, bool) {
	if raw == "" {
		return nil, true
	}
	due, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.APIError{Error: "Некорректная дата выполнения"})
		return nil, false
	}
	return &due, true
}
