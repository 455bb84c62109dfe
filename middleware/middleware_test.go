package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/lockana"
	"github.com/MrEthical07/lockana/errs"
	"github.com/MrEthical07/lockana/internal/logger"
)

const testSecret = "JBSWY3DPEHPK3PXP"

type staticUsers map[string]*lockana.User

func (s staticUsers) FindByUsername(_ context.Context, username string) (*lockana.User, error) {
	u, ok := s[username]
	if !ok {
		return nil, lockana.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s staticUsers) UpdateSecret(context.Context, string, string) error { return nil }

func newEngine(t *testing.T) *lockana.Engine {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := lockana.DefaultConfig()
	cfg.Token.SigningSecret = []byte("0123456789abcdef0123456789abcdef")
	cfg.Encryption.Key = bytes.Repeat([]byte{1}, 32)
	cfg.Guard.RevocationSweepInterval = 0
	cfg.Audit.Enabled = false
	cfg.Permission.Roles = map[string][]string{"viewer": {"read"}}

	users := staticUsers{
		"alice": {Username: "alice", Secret: testSecret, Roles: []lockana.Role{{Name: "viewer"}}},
		"root":  {Username: "root", Secret: testSecret, Roles: []lockana.Role{{Name: "admin"}}},
	}

	engine, err := lockana.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(users).
		WithLogger(logger.Discard()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(func() {
		engine.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return engine
}

func login(t *testing.T, engine *lockana.Engine, username string) string {
	t.Helper()
	code, err := engine.GenerateCode(testSecret, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode failed: %v", err)
	}
	res, err := engine.Login(context.Background(), username, code)
	if err != nil {
		t.Fatalf("Login(%s) failed: %v", username, err)
	}
	return res.AccessToken
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body
}

func okHandler(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func TestRequireRole(t *testing.T) {
	engine := newEngine(t)
	viewer := login(t, engine, "alice")
	admin := login(t, engine, "root")

	var seen *lockana.AuthResult
	h := RequireRole(engine, "admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = AuthResultFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + admin, http.StatusUnauthorized},
		{"insufficient role", "Bearer " + viewer, http.StatusUnauthorized},
		{"admin", "Bearer " + admin, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			if tc.status == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Fatal("expected WWW-Authenticate header on 401")
			}
		})
	}

	if seen == nil || seen.Username != "root" || seen.Role != "admin" {
		t.Fatalf("unexpected auth result in context: %+v", seen)
	}
}

func TestRequireRoleRejectsRevokedToken(t *testing.T) {
	engine := newEngine(t)
	tok := login(t, engine, "alice")
	if err := engine.Logout(context.Background(), tok); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	RequireRole(engine, "")(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != errs.KindInvalidToken.Code() {
		t.Fatalf("expected %s, got %+v", errs.KindInvalidToken.Code(), body)
	}
}

func TestRequirePermission(t *testing.T) {
	engine := newEngine(t)
	viewer := login(t, engine, "alice")

	var user *lockana.User
	read := RequirePermission(engine, "read")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+viewer)
	rec := httptest.NewRecorder()
	read.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if user == nil || user.Username != "alice" {
		t.Fatalf("expected alice in context, got %+v", user)
	}

	rec = httptest.NewRecorder()
	RequirePermission(engine, "delete")(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != errs.KindPermissionDenied.Code() {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestNilEngineFailsClosed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer x")

	for name, mw := range map[string]func(http.Handler) http.Handler{
		"role":       RequireRole(nil, ""),
		"permission": RequirePermission(nil, "read"),
	} {
		rec := httptest.NewRecorder()
		mw(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", name, rec.Code)
		}
	}
}

func TestClientIP(t *testing.T) {
	var got string
	h := func(trust bool) http.Handler {
		return ClientIP(trust)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			got = lockana.ClientIPFromContext(r.Context())
		}))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	h(false).ServeHTTP(httptest.NewRecorder(), req)
	if got != "192.0.2.7" {
		t.Fatalf("expected remote address, got %q", got)
	}

	h(true).ServeHTTP(httptest.NewRecorder(), req)
	if got != "203.0.113.9" {
		t.Fatalf("expected forwarded address, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "garbage")
	h(true).ServeHTTP(httptest.NewRecorder(), req)
	if got != "192.0.2.7" {
		t.Fatalf("expected fallback to remote address, got %q", got)
	}
}

func TestWriteErrorHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errs.Wrap(errs.KindStorage, context.DeadlineExceeded, ""))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Code != errs.KindStorage.Code() || body.Message != errs.KindStorage.DefaultMessage() {
		t.Fatalf("unexpected body %+v", body)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("deadline")) {
		t.Fatal("cause leaked into response")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Rate: 1, Burst: 2, IdleTTL: time.Minute, CleanupInterval: time.Hour})
	defer rl.Stop()

	h := ClientIP(false)(rl.Middleware()(http.HandlerFunc(okHandler)))
	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do("198.51.100.1:1000"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	rec := do("198.51.100.1:1001")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("unexpected Retry-After %q", rec.Header().Get("Retry-After"))
	}
	if rec := do("198.51.100.2:1000"); rec.Code != http.StatusOK {
		t.Fatalf("other address should not be limited, got %d", rec.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Rate: 1, Burst: 1, IdleTTL: time.Minute, CleanupInterval: time.Hour})
	defer rl.Stop()
	defer rl.Stop()

	now := time.Now()
	rl.Allow("a", now.Add(-2*time.Minute))
	rl.Allow("b", now)
	rl.cleanup(now)

	if rl.Len() != 1 {
		t.Fatalf("expected idle entry removed, got %d entries", rl.Len())
	}
}
