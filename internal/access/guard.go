package access

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/pride-academy/academy/internal/shared"
)

// Requirement describes what a guarded route demands. Zero value means
// "authenticated user", with no role or permission restriction.
type Requirement struct {
	Roles   []Role
	Section string
	Action  string
}

// Guard gates route access on identity, role membership and permission
// checks. Denial is always a redirect: unauthenticated callers go to the
// sign-in page, authorized-but-insufficient callers to the landing page.
type Guard struct {
	Resolver *Resolver
	Logger   *slog.Logger

	// SignInURL and FallbackURL default to /auth/signin and /dashboard.
	SignInURL   string
	FallbackURL string

	// Bypass disables role and permission filtering (authentication is
	// still enforced). It exists as an explicit rollout override and must
	// stay off in normal operation.
	Bypass bool

	// Metrics, when set, counts denials by reason.
	Metrics DenialCounter
}

// DenialCounter records guard denials for observability.
type DenialCounter interface {
	CountDenial(reason string)
}

// Require builds a middleware enforcing the given requirement.
func (g Guard) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := g.currentUserID(r)
			if !ok {
				g.deny("unauthenticated")
				http.Redirect(w, r, g.signInURL(), http.StatusSeeOther)
				return
			}
			if g.Bypass {
				if g.Logger != nil {
					g.Logger.Warn("access guard bypass active", slog.String("path", r.URL.Path))
				}
				next.ServeHTTP(w, r)
				return
			}
			resolution, resolved := g.Resolver.Resolve(r.Context(), userID)
			if !resolved {
				// Fail closed: unresolved permissions never render
				// protected content.
				g.deny("unresolved")
				http.Redirect(w, r, g.fallbackURL(), http.StatusSeeOther)
				return
			}
			if len(req.Roles) > 0 && !roleAllowed(resolution.Role, req.Roles) {
				g.deny("role")
				http.Redirect(w, r, g.fallbackURL(), http.StatusSeeOther)
				return
			}
			if req.Section != "" && !resolution.Permissions.Allows(req.Section, req.Action) {
				g.deny("permission")
				http.Redirect(w, r, g.fallbackURL(), http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth enforces an authenticated, resolvable user with no further
// restriction.
func (g Guard) RequireAuth() func(http.Handler) http.Handler {
	return g.Require(Requirement{})
}

// RequireRoles enforces membership in the given role list.
func (g Guard) RequireRoles(roles ...Role) func(http.Handler) http.Handler {
	return g.Require(Requirement{Roles: roles})
}

// RequirePermission enforces a single permission path.
func (g Guard) RequirePermission(section, action string) func(http.Handler) http.Handler {
	return g.Require(Requirement{Section: section, Action: action})
}

func (g Guard) currentUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if g.Logger != nil {
			g.Logger.Error("guard parse user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}

func (g Guard) deny(reason string) {
	if g.Metrics != nil {
		g.Metrics.CountDenial(reason)
	}
}

func (g Guard) signInURL() string {
	if g.SignInURL != "" {
		return g.SignInURL
	}
	return "/auth/signin"
}

func (g Guard) fallbackURL() string {
	if g.FallbackURL != "" {
		return g.FallbackURL
	}
	return "/dashboard"
}

func roleAllowed(role Role, allowed []Role) bool {
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}

// CurrentUserID extracts the authenticated user from the request session.
// Handlers mounted behind the guard can rely on it succeeding.
func CurrentUserID(r *http.Request) (int64, bool) {
	return Guard{}.currentUserID(r)
}
