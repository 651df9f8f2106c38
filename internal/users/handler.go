package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/pride-academy/academy/internal/access"
	"github.com/pride-academy/academy/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     access.Guard
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard access.Guard) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAuth())
		r.Get("/me", h.currentProfile)
		r.Put("/me", h.updateOwnProfile)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(access.SectionUserManagement, "view"))
		r.Get("/", h.listUsers)
		r.Get("/pending", h.listPending)
		r.Get("/{id}", h.getUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(access.SectionUserManagement, "approve"))
		r.Post("/{id}/approve", h.approveUser)
		r.Post("/{id}/reject", h.rejectUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(access.SectionUserManagement, "edit"))
		r.Post("/bulk-role", h.bulkUpdateRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(access.SectionUserManagement, "delete"))
		r.Delete("/{id}", h.deleteUser)
	})
}

type userResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	LastName    string `json:"lastName"`
	Position    string `json:"position"`
	Department  string `json:"department"`
	Role        string `json:"role"`
	RoleName    string `json:"roleName"`
	Status      string `json:"status"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

func toResponse(u User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		LastName:    u.LastName,
		Position:    u.Position,
		Department:  u.Department,
		Role:        string(u.Role),
		RoleName:    u.Role.LocalizedName(),
		Status:      string(u.Status),
		AvatarURL:   u.AvatarURL,
	}
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toResponse(u))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"users": out})
}

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.PendingUsers(r.Context())
	if err != nil {
		h.logger.Error("list pending users failed", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toResponse(u))
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"users": out})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.WriteError(w, http.StatusNotFound, shared.ErrNotFound)
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		shared.WriteError(w, http.StatusNotFound, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(user))
}

func (h *Handler) currentProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := access.CurrentUserID(r)
	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		shared.WriteError(w, http.StatusNotFound, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toResponse(user))
}

type profileUpdateRequest struct {
	DisplayName string `json:"displayName" validate:"required,max=100"`
	LastName    string `json:"lastName" validate:"max=100"`
	Position    string `json:"position" validate:"max=100"`
	Department  string `json:"department" validate:"max=100"`
	AvatarURL   string `json:"avatarUrl" validate:"omitempty,url"`
}

func (h *Handler) updateOwnProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := access.CurrentUserID(r)
	var req profileUpdateRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	upd := ProfileUpdate{
		DisplayName: req.DisplayName,
		LastName:    req.LastName,
		Position:    req.Position,
		Department:  req.Department,
		AvatarURL:   req.AvatarURL,
	}
	if err := h.service.UpdateProfile(r.Context(), userID, upd); err != nil {
		h.logger.Error("update profile failed", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type approveRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *Handler) approveUser(w http.ResponseWriter, r *http.Request) {
	actorID, _ := access.CurrentUserID(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.WriteError(w, http.StatusNotFound, shared.ErrNotFound)
		return
	}
	var req approveRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	role, err := access.ParseRole(req.Role)
	if err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.APIError{Error: "Неизвестная роль"})
		return
	}
	if err := h.service.ApproveUser(r.Context(), actorID, id, role); err != nil {
		h.logger.Error("approve user failed", slog.Int64("user_id", id), slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "approved"})
}

func (h *Handler) rejectUser(w http.ResponseWriter, r *http.Request) {
	actorID, _ := access.CurrentUserID(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.WriteError(w, http.StatusNotFound, shared.ErrNotFound)
		return
	}
	if err := h.service.RejectUser(r.Context(), actorID, id); err != nil {
		h.logger.Error("reject user failed", slog.Int64("user_id", id), slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

type bulkRoleRequest struct {
	UserIDs []int64 `json:"userIds" validate:"required,min=1"`
	Role    string  `json:"role" validate:"required"`
}

func (h *Handler) bulkUpdateRoles(w http.ResponseWriter, r *http.Request) {
	actorID, _ := access.CurrentUserID(r)
	var req bulkRoleRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.WriteValidationError(w, err)
		return
	}
	role, err := access.ParseRole(req.Role)
	if err != nil {
		shared.WriteJSON(w, http.StatusBadRequest, shared.APIError{Error: "Неизвестная роль"})
		return
	}
	if err := h.service.BulkUpdateRoles(r.Context(), actorID, req.UserIDs, role); err != nil {
		h.logger.Error("bulk role update failed", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	actorID, _ := access.CurrentUserID(r)
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		shared.WriteError(w, http.StatusNotFound, shared.ErrNotFound)
		return
	}
	if err := h.service.DeleteUser(r.Context(), actorID, id); err != nil {
		h.logger.Error("delete user failed", slog.Int64("user_id", id), slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
