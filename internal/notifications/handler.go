package notifications

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

// Handler wires HTTP endpoints for the notification inbox.
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

// MountRoutes registers notification routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAuth())
		r.Get("/", h.list)
		r.Get("/unread-count", h.unreadCount)
		r.Post("/{id}/read", h.markRead)
		r.Post("/read-all", h.markAllRead)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(access.SectionSystemSettings, "modify"))
		r.Post("/announce", h.announce)
	})
}

type notificationResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	Read      bool      `json:"read"`
	Broadcast bool      `json:"broadcast"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := h.identity(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.service.ListForUser(r.Context(), userID, role, limit)
	if err != nil {
		h.logger.Error("list notifications", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]notificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, notificationResponse{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			Type:      n.Type,
			Read:      n.Read,
			Broadcast: n.Broadcast,
			CreatedAt: n.CreatedAt,
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"notifications": out})
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := h.identity(w, r)
	if !ok {
		return
	}
	count, err := h.service.UnreadCount(r.Context(), userID, role)
	if err != nil {
		h.logger.Error("unread count", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := h.identity(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.APIError{Error: "Некорректный идентификатор"})
		return
	}
	if err := h.service.MarkRead(r.Context(), id, userID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			shared.WriteJSON(w, http.StatusNotFound, shared.APIError{Error: "Уведомление не найдено"})
			return
		}
		h.logger.Error("mark read", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := h.identity(w, r)
	if !ok {
		return
	}
	if err := h.service.MarkAllRead(r.Context(), userID, role); err != nil {
		h.logger.Error("mark all read", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "read"})
}

type announceRequest struct {
	Title   string   `json:"title" validate:"required,max=200"`
	Message string   `json:"message" validate:"required,max=2000"`
	Type    string   `json:"type" validate:"omitempty,oneof=INFO SUCCESS WARNING ERROR"`
	Roles   []string `json:"roles" validate:"dive,oneof=ADMIN MANAGER MENTOR EMPLOYEE TRAINEE"`
}

func (h *Handler) announce(w http.ResponseWriter, r *http.Request) {
	var req announceRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	typ := Type(req.Type)
	if typ == "" {
		typ = TypeInfo
	}
	roles := make([]access.Role, 0, len(req.Roles))
	for _, raw := range req.Roles {
		role, err := access.ParseRole(raw)
		if err != nil {
			shared.WriteJSON(w, http.StatusBadRequest, shared.APIError{Error: "Неизвестная роль"})
			return
		}
		roles = append(roles, role)
	}
	id, err := h.service.Announce(r.Context(), roles, req.Title, req.Message, typ)
	if err != nil {
		h.logger.Error("announce", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// identity resolves the caller's id and role. The guard already verified the
// session, so a failed resolve here means the cache was just invalidated.
func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (int64, access.Role, bool) {
	userID, ok := access.CurrentUserID(r)
	if !ok {
		shared.WriteJSON(w, http.StatusUnauthorized, shared.APIError{Error: "Требуется вход в систему"})
		return 0, "", false
	}
	res, ok := h.resolver.Resolve(r.Context(), userID)
	if !ok {
		shared.WriteJSON(w, http.StatusForbidden, shared.APIError{Error: shared.UserSafeMessage(shared.ErrForbidden)})
		return 0, "", false
	}
	return userID, res.Role, true
}
