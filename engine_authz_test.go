package lockana

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func loginToken(t *testing.T, te *testEngine, username string) string {
	t.Helper()
	res, err := te.Login(context.Background(), username, te.code(t))
	if err != nil {
		t.Fatalf("Login(%s) failed: %v", username, err)
	}
	te.clock.Advance(30 * time.Second)
	return res.AccessToken
}

func TestValidateRoleRules(t *testing.T) {
	te := newTestEngine(t, testConfig(), defaultUsers(), nil)
	ctx := context.Background()

	admin := loginToken(t, te, "root")
	viewer := loginToken(t, te, "alice")

	if _, err := te.Validate(ctx, admin, "user"); err != nil {
		t.Fatalf("expected admin token to satisfy user role, got %v", err)
	}
	if _, err := te.Validate(ctx, viewer, ""); err != nil {
		t.Fatalf("expected empty requirement to accept any role, got %v", err)
	}
	if _, err := te.Validate(ctx, viewer, "admin"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for insufficient role, got %v", err)
	}
	if _, err := te.Validate(ctx, "not-a-token", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for garbage, got %v", err)
	}
	if got := te.MetricsSnapshot().Counters[MetricTokenRejected]; got != 2 {
		t.Fatalf("expected 2 rejected tokens, got %d", got)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	te := newTestEngine(t, testConfig(), defaultUsers(), nil)
	ctx := context.Background()

	tok := loginToken(t, te, "alice")
	other := loginToken(t, te, "alice")

	if err := te.Logout(ctx, tok); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	_, err := te.Validate(ctx, tok, "")
	if !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Fatal("revocation must be distinguishable from generic rejection")
	}
	if _, err := te.Validate(ctx, other, ""); err != nil {
		t.Fatalf("expected other token to stay valid, got %v", err)
	}
	if got := te.MetricsSnapshot().Counters[MetricLogout]; got != 1 {
		t.Fatalf("expected 1 logout, got %d", got)
	}
}

func TestLogoutRejectsForgedToken(t *testing.T) {
	te := newTestEngine(t, testConfig(), defaultUsers(), nil)
	if err := te.Logout(context.Background(), "a.b.c"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLogoutHoldsThroughLeeway(t *testing.T) {
	cfg := testConfig()
	cfg.Token.AccessTTL = time.Minute
	cfg.Token.Leeway = time.Minute
	te := newTestEngine(t, cfg, defaultUsers(), nil)
	ctx := context.Background()

	tok := loginToken(t, te, "alice")
	if err := te.Logout(ctx, tok); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	te.clock.Advance(time.Minute)
	if _, err := te.Validate(ctx, tok, ""); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked past expiry within leeway, got %v", err)
	}

	// Expired but still inside the leeway when logged out.
	late := loginToken(t, te, "alice")
	te.clock.Advance(45 * time.Second)
	if _, err := te.Validate(ctx, late, ""); err != nil {
		t.Fatalf("expected token to be accepted within leeway, got %v", err)
	}
	if err := te.Logout(ctx, late); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := te.Validate(ctx, late, ""); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}

	te.clock.Advance(time.Minute)
	if _, err := te.Validate(ctx, late, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized once the leeway has passed, got %v", err)
	}
}

func TestValidateFailsClosedWhenStoreDown(t *testing.T) {
	te := newTestEngine(t, testConfig(), defaultUsers(), nil)
	tok := loginToken(t, te, "alice")
	te.mr.Close()

	if _, err := te.Validate(context.Background(), tok, ""); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected fail-closed revocation error, got %v", err)
	}
}

func TestAuthorize(t *testing.T) {
	te := newTestEngine(t, testConfig(), defaultUsers(), nil)
	ctx := context.Background()

	viewer := loginToken(t, te, "alice")
	admin := loginToken(t, te, "root")

	user, err := te.Authorize(ctx, viewer, "read")
	if err != nil {
		t.Fatalf("expected read allowed, got %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("unexpected user %q", user.Username)
	}
	if _, err := te.Authorize(ctx, viewer, "delete"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if _, err := te.Authorize(ctx, admin, "manage"); err != nil {
		t.Fatalf("expected admin allowed, got %v", err)
	}
	if got := te.MetricsSnapshot().Counters[MetricPermissionDenied]; got != 1 {
		t.Fatalf("expected 1 denial, got %d", got)
	}

	te.users.remove("alice")
	if _, err := te.Authorize(ctx, viewer, "read"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := te.CurrentUser(ctx, viewer); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound from CurrentUser, got %v", err)
	}
}

func TestEffectivePermissions(t *testing.T) {
	te := newTestEngine(t, testConfig(), defaultUsers(), nil)
	ctx := context.Background()

	got, err := te.EffectivePermissions(ctx, &User{Username: "root", Roles: []Role{{Name: "admin", Permissions: []string{}}}})
	if err != nil {
		t.Fatalf("EffectivePermissions failed: %v", err)
	}
	want := []string{"delete", "manage", "read", "write"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	got, err = te.EffectivePermissions(ctx, &User{Username: "eve", Roles: []Role{
		{Name: "viewer"},
		{Name: "custom", Permissions: []string{"manage"}},
	}})
	if err != nil {
		t.Fatalf("EffectivePermissions failed: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"manage", "read"}) {
		t.Fatalf("unexpected union %v", got)
	}

	ok, err := te.HasPermission(ctx, &User{Roles: []Role{{Name: "editor"}}}, "write")
	if err != nil || !ok {
		t.Fatalf("expected editor to write, got %v %v", ok, err)
	}
}

func TestRequirePermissionGuardsOperation(t *testing.T) {
	te := newTestEngine(t, testConfig(), defaultUsers(), nil)
	ctx := context.Background()
	viewer := loginToken(t, te, "alice")

	calls := 0
	deleteItem := RequirePermission(te.Engine, "delete", func(_ context.Context, user *User) (string, error) {
		calls++
		return "deleted by " + user.Username, nil
	})
	readItem := RequirePermission(te.Engine, "read", func(_ context.Context, user *User) (string, error) {
		calls++
		return "read by " + user.Username, nil
	})

	if _, err := deleteItem(ctx, viewer); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if calls != 0 {
		t.Fatal("operation must not run when denied")
	}

	out, err := readItem(ctx, viewer)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if out != "read by alice" || calls != 1 {
		t.Fatalf("unexpected result %q calls=%d", out, calls)
	}
}
