package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pride-academy/academy/internal/shared"
	_ "github.com/pride-academy/academy/testing"
)

func newSessionManager(t *testing.T) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewSessionManager(client, "test_session", time.Hour, false)
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("7")
	sess.Set("theme", "dark")

	res := httptest.NewRecorder()
	if err := sm.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookies := res.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != sess.ID {
		t.Fatalf("expected session cookie %q, got %v", sess.ID, cookies)
	}

	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, second)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.User() != "7" {
		t.Fatalf("expected user 7, got %q", loaded.User())
	}
	if loaded.Get("theme") != "dark" {
		t.Fatalf("expected stored value to survive, got %q", loaded.Get("theme"))
	}
}

func TestSessionDestroy(t *testing.T) {
	sm := newSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("7")
	res := httptest.NewRecorder()
	if err := sm.Commit(ctx, res, req, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookie := res.Result().Cookies()[0]

	sm.Destroy(sess)
	destroyRes := httptest.NewRecorder()
	if err := sm.Commit(ctx, destroyRes, req, sess); err != nil {
		t.Fatalf("commit destroy: %v", err)
	}
	cleared := destroyRes.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge != -1 {
		t.Fatalf("expected expired cookie, got %v", cleared)
	}

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	loaded, err := sm.Load(ctx, next)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.User() != "" {
		t.Fatalf("destroyed session must be anonymous, got %q", loaded.User())
	}
}

func TestSessionFlashes(t *testing.T) {
	sm := newSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Сохранено"})
	sess.AddFlash(shared.FlashMessage{Kind: "error", Message: "Ошибка"})

	first := sess.PopFlash()
	if first == nil || first.Message != "Сохранено" {
		t.Fatalf("expected oldest flash first, got %v", first)
	}
	second := sess.PopFlash()
	if second == nil || second.Kind != "error" {
		t.Fatalf("expected second flash, got %v", second)
	}
	if sess.PopFlash() != nil {
		t.Fatalf("expected empty flash queue")
	}
}

func TestCSRFTokenLifecycle(t *testing.T) {
	cm := shared.NewCSRFManager("secret")
	sess := &shared.Session{ID: "abc"}
	ctx := context.Background()

	token, err := cm.EnsureToken(ctx, sess)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}

	again, err := cm.EnsureToken(ctx, sess)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if again != token {
		t.Fatalf("token must be stable per session")
	}

	if err := cm.VerifyToken(ctx, sess, token); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := cm.VerifyToken(ctx, sess, "forged"); err == nil {
		t.Fatalf("expected mismatch error for forged token")
	}
	if err := cm.VerifyToken(ctx, sess, ""); err == nil {
		t.Fatalf("expected missing token error")
	}
	if err := cm.VerifyToken(ctx, nil, token); err == nil {
		t.Fatalf("expected missing session error")
	}
}
