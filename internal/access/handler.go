package access

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pride-academy/academy/internal/shared"
)

// Handler exposes the resolved access state to the frontend.
type Handler struct {
	logger   *slog.Logger
	resolver *Resolver
	guard    Guard
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, resolver *Resolver, guard Guard) *Handler {
	return &Handler{logger: logger, resolver: resolver, guard: guard}
}

// MountRoutes registers access routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAuth())
		r.Get("/me", h.currentAccess)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(SectionUserManagement, "view"))
		r.Get("/roles", h.listRoles)
	})
}

type accessResponse struct {
	Role          Role           `json:"role"`
	RoleName      string         `json:"roleName"`
	RoleDesc      string         `json:"roleDescription"`
	Permissions   PermissionTree `json:"permissions"`
	CSRFProtected bool           `json:"csrfProtected"`
}

func (h *Handler) currentAccess(w http.ResponseWriter, r *http.Request) {
	userID, _ := CurrentUserID(r)
	resolution, ok := h.resolver.Resolve(r.Context(), userID)
	if !ok {
		// The guard already passed, so this is a cache race; report
		// unresolved rather than a server error.
		shared.WriteJSON(w, http.StatusOK, map[string]any{"role": nil, "permissions": nil})
		return
	}
	shared.WriteJSON(w, http.StatusOK, accessResponse{
		Role:          resolution.Role,
		RoleName:      resolution.Role.LocalizedName(),
		RoleDesc:      resolution.Role.Description(),
		Permissions:   resolution.Permissions,
		CSRFProtected: true,
	})
}

type roleInfo struct {
	ID          Role           `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Permissions PermissionTree `json:"permissions"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles := make([]roleInfo, 0, len(AllRoles()))
	for _, role := range AllRoles() {
		roles = append(roles, roleInfo{
			ID:          role,
			Name:        role.LocalizedName(),
			Description: role.Description(),
			Permissions: PermissionsFor(role),
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"roles": roles})
}
