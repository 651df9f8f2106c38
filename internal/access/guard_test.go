package access_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pride-academy/academy/internal/access"
	"github.com/pride-academy/academy/internal/shared"
	_ "github.com/pride-academy/academy/testing"
)

type guardStore struct {
	roles map[int64]string
}

func (s guardStore) RoleByUserID(ctx context.Context, userID int64) (string, access.ProfileStatus, error) {
	role, ok := s.roles[userID]
	if !ok {
		return "", access.StatusPending, nil
	}
	return role, access.StatusApproved, nil
}

type denialLog struct {
	reasons []string
}

func (d *denialLog) CountDenial(reason string) {
	d.reasons = append(d.reasons, reason)
}

func newGuard(roles map[int64]string) (access.Guard, *denialLog) {
	resolver := access.NewResolver(guardStore{roles: roles}, nil, access.ResolverConfig{TTL: time.Minute})
	denials := &denialLog{}
	return access.Guard{Resolver: resolver, Metrics: denials}, denials
}

func requestAs(userID string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	if userID == "" {
		return r
	}
	sess := &shared.Session{}
	sess.SetUser(userID)
	return r.WithContext(shared.ContextWithSession(r.Context(), sess))
}

func serve(mw func(http.Handler) http.Handler, r *http.Request) (*httptest.ResponseRecorder, bool) {
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, r)
	return rec, reached
}

func TestGuardRedirectsAnonymousToSignIn(t *testing.T) {
	guard, denials := newGuard(nil)

	rec, reached := serve(guard.RequireAuth(), requestAs(""))
	if reached {
		t.Fatalf("anonymous request must not reach the handler")
	}
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/auth/signin" {
		t.Fatalf("redirect = %q, want /auth/signin", loc)
	}
	if len(denials.reasons) != 1 || denials.reasons[0] != "unauthenticated" {
		t.Fatalf("denial reasons = %v", denials.reasons)
	}
}

func TestGuardRedirectsUnresolvedToFallback(t *testing.T) {
	// User 9 exists in no store row, so the resolver fails closed.
	guard, denials := newGuard(map[int64]string{})

	rec, reached := serve(guard.RequireAuth(), requestAs("9"))
	if reached {
		t.Fatalf("unresolved user must not reach the handler")
	}
	if loc := rec.Header().Get("Location"); loc != "/dashboard" {
		t.Fatalf("redirect = %q, want /dashboard", loc)
	}
	if len(denials.reasons) != 1 || denials.reasons[0] != "unresolved" {
		t.Fatalf("denial reasons = %v", denials.reasons)
	}
}

func TestGuardMalformedUserIDIsUnauthenticated(t *testing.T) {
	guard, _ := newGuard(map[int64]string{1: "ADMIN"})

	rec, reached := serve(guard.RequireAuth(), requestAs("not-a-number"))
	if reached {
		t.Fatalf("malformed session user must not reach the handler")
	}
	if loc := rec.Header().Get("Location"); loc != "/auth/signin" {
		t.Fatalf("redirect = %q, want /auth/signin", loc)
	}
}

func TestGuardRoleRequirement(t *testing.T) {
	guard, denials := newGuard(map[int64]string{1: "ADMIN", 2: "TRAINEE"})
	mw := guard.RequireRoles(access.RoleAdmin, access.RoleManager)

	if _, reached := serve(mw, requestAs("1")); !reached {
		t.Fatalf("admin must pass the role check")
	}

	rec, reached := serve(mw, requestAs("2"))
	if reached {
		t.Fatalf("trainee must not pass the role check")
	}
	if loc := rec.Header().Get("Location"); loc != "/dashboard" {
		t.Fatalf("redirect = %q, want /dashboard", loc)
	}
	if len(denials.reasons) != 1 || denials.reasons[0] != "role" {
		t.Fatalf("denial reasons = %v", denials.reasons)
	}
}

func TestGuardPermissionRequirement(t *testing.T) {
	guard, denials := newGuard(map[int64]string{1: "MENTOR"})

	if _, reached := serve(guard.RequirePermission(access.SectionExams, "grade"), requestAs("1")); !reached {
		t.Fatalf("mentor must pass exams/grade")
	}
	if _, reached := serve(guard.RequirePermission(access.SectionExams, "create"), requestAs("1")); reached {
		t.Fatalf("mentor must not pass exams/create")
	}
	if len(denials.reasons) != 1 || denials.reasons[0] != "permission" {
		t.Fatalf("denial reasons = %v", denials.reasons)
	}
}

func TestGuardBypassSkipsPermissionChecksOnly(t *testing.T) {
	guard, _ := newGuard(map[int64]string{2: "TRAINEE"})
	guard.Bypass = true
	mw := guard.RequirePermission(access.SectionSystemSettings, "modify")

	if _, reached := serve(mw, requestAs("2")); !reached {
		t.Fatalf("bypass must let an authenticated user through")
	}
	if rec, reached := serve(mw, requestAs("")); reached || rec.Header().Get("Location") != "/auth/signin" {
		t.Fatalf("bypass must still require authentication")
	}
}

func TestGuardCustomRedirectTargets(t *testing.T) {
	guard, _ := newGuard(nil)
	guard.SignInURL = "/login"
	guard.FallbackURL = "/home"

	rec, _ := serve(guard.RequireAuth(), requestAs(""))
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Fatalf("redirect = %q, want /login", loc)
	}
	rec, _ = serve(guard.RequireAuth(), requestAs("5"))
	if loc := rec.Header().Get("Location"); loc != "/home" {
		t.Fatalf("redirect = %q, want /home", loc)
	}
}

func TestCurrentUserID(t *testing.T) {
	if _, ok := access.CurrentUserID(requestAs("")); ok {
		t.Fatalf("anonymous request must have no user")
	}
	id, ok := access.CurrentUserID(requestAs("17"))
	if !ok || id != 17 {
		t.Fatalf("CurrentUserID = %d, %v", id, ok)
	}
}
