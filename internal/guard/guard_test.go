package guard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/lockana/errs"
	"github.com/MrEthical07/lockana/store"
)

func newTestGuard(t *testing.T, cfg Config) (*miniredis.Miniredis, *Guard) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BlockDuration == 0 {
		cfg.BlockDuration = 5 * time.Minute
	}
	g, err := New(store.NewRedis(client, ""), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return mr, g
}

func TestNthFailureBlocks(t *testing.T) {
	mr, g := newTestGuard(t, Config{})
	ctx := context.Background()

	for i := 1; i < 3; i++ {
		out, err := g.RecordFailure(ctx, "alice", "10.0.0.1")
		if err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
		if out.Blocked() {
			t.Fatalf("failure %d must not block", i)
		}
		if err := g.Check(ctx, "alice", "10.0.0.1"); err != nil {
			t.Fatalf("check after %d failures: %v", i, err)
		}
	}

	out, err := g.RecordFailure(ctx, "alice", "10.0.0.1")
	if err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if !out.UserBlocked || !out.AddrBlocked {
		t.Fatalf("third failure should block both, got %+v", out)
	}

	err = g.Check(ctx, "alice", "10.0.0.2")
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected user block, got %v", err)
	}
	if errs.KindOf(err) != errs.KindRateLimited {
		t.Fatalf("expected rate limited kind")
	}
	if err := g.Check(ctx, "bob", "10.0.0.1"); !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected address block for another user, got %v", err)
	}

	if ttl := mr.TTL("block_user:alice"); ttl != 5*time.Minute {
		t.Fatalf("expected block ttl 5m, got %v", ttl)
	}

	mr.FastForward(5*time.Minute + time.Second)
	if err := g.Check(ctx, "alice", "10.0.0.1"); err != nil {
		t.Fatalf("block should lapse on its own, got %v", err)
	}
}

func TestSuccessResetsCountersButNotBlocks(t *testing.T) {
	_, g := newTestGuard(t, Config{})
	ctx := context.Background()

	_, _ = g.RecordFailure(ctx, "alice", "10.0.0.1")
	_, _ = g.RecordFailure(ctx, "alice", "10.0.0.1")
	if err := g.RecordSuccess(ctx, "alice", "10.0.0.1"); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}
	user, addr, err := g.Attempts(ctx, "alice", "10.0.0.1")
	if err != nil {
		t.Fatalf("Attempts: %v", err)
	}
	if user != 0 || addr != 0 {
		t.Fatalf("counters should be cleared, got %d/%d", user, addr)
	}

	// A full budget is available again.
	_, _ = g.RecordFailure(ctx, "alice", "10.0.0.1")
	out, _ := g.RecordFailure(ctx, "alice", "10.0.0.1")
	if out.Blocked() {
		t.Fatalf("second failure after reset must not block")
	}
	out, _ = g.RecordFailure(ctx, "alice", "10.0.0.1")
	if !out.Blocked() {
		t.Fatalf("third failure after reset should block")
	}

	if err := g.RecordSuccess(ctx, "alice", "10.0.0.1"); err != nil {
		t.Fatalf("RecordSuccess: %v", err)
	}
	if err := g.Check(ctx, "alice", "10.0.0.1"); !errors.Is(err, ErrBlocked) {
		t.Fatalf("success must not lift an active block, got %v", err)
	}
}

func TestWhitelistBypassesBlocks(t *testing.T) {
	_, g := newTestGuard(t, Config{Whitelist: []string{"127.0.0.1", "192.168.0.0/16"}})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := g.RecordFailure(ctx, "alice", "10.0.0.1"); err != nil {
			t.Fatalf("RecordFailure: %v", err)
		}
	}
	if err := g.Check(ctx, "alice", "10.0.0.1"); !errors.Is(err, ErrBlocked) {
		t.Fatalf("expected block from a normal address")
	}
	if err := g.Check(ctx, "alice", "127.0.0.1"); err != nil {
		t.Fatalf("whitelisted address must bypass the check, got %v", err)
	}
	if err := g.Check(ctx, "alice", "192.168.4.20"); err != nil {
		t.Fatalf("whitelisted prefix must bypass the check, got %v", err)
	}

	out, err := g.RecordFailure(ctx, "carol", "192.168.4.20")
	if err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if out.AddrAttempts != 0 {
		t.Fatalf("whitelisted address must not be counted")
	}
}

func TestInvalidWhitelistRejected(t *testing.T) {
	if _, err := ParseWhitelist([]string{"not-an-ip"}); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := ParseWhitelist([]string{"10.0.0.0/99"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestEmptyAddressOnlyTracksUser(t *testing.T) {
	_, g := newTestGuard(t, Config{MaxAttempts: 1})
	ctx := context.Background()

	out, err := g.RecordFailure(ctx, "alice", "")
	if err != nil {
		t.Fatalf("RecordFailure: %v", err)
	}
	if !out.UserBlocked || out.AddrBlocked {
		t.Fatalf("unexpected outcome %+v", out)
	}
}

func TestRevocation(t *testing.T) {
	_, g := newTestGuard(t, Config{})
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	g.now = func() time.Time { return now }

	if err := g.Revoke(ctx, "tok-live", now.Add(time.Hour)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := g.Revoke(ctx, "tok-expired", now.Add(-time.Second)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	revoked, err := g.IsRevoked(ctx, "tok-live")
	if err != nil || !revoked {
		t.Fatalf("expected revoked, got %v %v", revoked, err)
	}
	revoked, _ = g.IsRevoked(ctx, "tok-expired")
	if revoked {
		t.Fatalf("already expired tokens are not stored")
	}

	now = now.Add(2 * time.Hour)
	revoked, _ = g.IsRevoked(ctx, "tok-live")
	if revoked {
		t.Fatalf("revocation must lapse with the token")
	}
	removed, err := g.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one swept revocation, got %d", removed)
	}
}

func TestRevocationStoresDigest(t *testing.T) {
	mr, g := newTestGuard(t, Config{})
	ctx := context.Background()

	if err := g.Revoke(ctx, "raw-token-value", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	members, err := mr.ZMembers(revokedSet)
	if err != nil {
		t.Fatalf("ZMembers: %v", err)
	}
	if len(members) != 1 || members[0] == "raw-token-value" {
		t.Fatalf("expected a single digest member, got %v", members)
	}
}

func TestSweeperRemovesExpired(t *testing.T) {
	_, g := newTestGuard(t, Config{})
	ctx := context.Background()

	now := time.Now()
	if err := g.Revoke(ctx, "tok", now.Add(time.Second)); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	g.now = func() time.Time { return now.Add(time.Hour) }

	swept := make(chan int64, 4)
	s := StartSweeper(g, 10*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)), func(n int64) {
		select {
		case swept <- n:
		default:
		}
	})
	defer s.Close()

	select {
	case n := <-swept:
		if n != 1 {
			t.Fatalf("expected one removal on first sweep, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("sweeper did not run")
	}

	s.Close()
	s.Close()
	var nilSweeper *Sweeper
	nilSweeper.Close()
}

func TestStoreFailureFailsClosed(t *testing.T) {
	mr, g := newTestGuard(t, Config{})
	mr.Close()

	err := g.Check(context.Background(), "alice", "10.0.0.1")
	if err == nil {
		t.Fatalf("expected error when the store is down")
	}
	if errs.KindOf(err) != errs.KindStorage {
		t.Fatalf("expected storage kind, got %v", err)
	}
	if _, err := g.IsRevoked(context.Background(), "tok"); err == nil {
		t.Fatalf("revocation check must surface store errors")
	}
}
