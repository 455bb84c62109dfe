package guard

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"time"

	"github.com/MrEthical07/lockana/errs"
	"github.com/MrEthical07/lockana/store"
)

// ErrBlocked is returned by Check while a username or address block is active.
var ErrBlocked = errs.New(errs.KindRateLimited, "too many failed attempts, try again later")

// Config holds abuse guard tuning parameters.
type Config struct {
	MaxAttempts   int
	BlockDuration time.Duration
	// AttemptWindow bounds how long an idle failure counter survives.
	AttemptWindow time.Duration
	// Whitelist holds exact addresses or CIDR prefixes exempt from blocking.
	Whitelist []string
	// Now overrides the clock used for revocation expiry. Nil means time.Now.
	Now func() time.Time
}

// Guard enforces attempt limits and owns the token revocation set.
type Guard struct {
	store     store.Store
	config    Config
	whitelist []netip.Prefix
	now       func() time.Time
}

// New validates cfg and returns a Guard backed by s.
func New(s store.Store, cfg Config) (*Guard, error) {
	if s == nil {
		return nil, errors.New("guard requires a store")
	}
	if cfg.MaxAttempts <= 0 {
		return nil, errors.New("max attempts must be > 0")
	}
	if cfg.BlockDuration <= 0 {
		return nil, errors.New("block duration must be > 0")
	}
	if cfg.AttemptWindow <= 0 {
		cfg.AttemptWindow = cfg.BlockDuration
	}

	prefixes, err := ParseWhitelist(cfg.Whitelist)
	if err != nil {
		return nil, err
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Guard{
		store:     s,
		config:    cfg,
		whitelist: prefixes,
		now:       now,
	}, nil
}

// ParseWhitelist turns addresses and CIDR prefixes into prefixes.
func ParseWhitelist(entries []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(entries))
	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, errs.Wrap(errs.KindValidation, err, "invalid whitelist prefix "+entry)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, errs.Wrap(errs.KindValidation, err, "invalid whitelist address "+entry)
		}
		out = append(out, netip.PrefixFrom(addr.Unmap(), addr.Unmap().BitLen()))
	}
	return out, nil
}

// Whitelisted reports whether addr is exempt from blocking.
func (g *Guard) Whitelisted(addr string) bool {
	if addr == "" || len(g.whitelist) == 0 {
		return false
	}
	a, err := netip.ParseAddr(addr)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range g.whitelist {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

// Check returns ErrBlocked if username or addr is blocked. Whitelisted addresses
// skip the check entirely. Store failures are returned as is so callers fail closed.
func (g *Guard) Check(ctx context.Context, username, addr string) error {
	if g.Whitelisted(addr) {
		return nil
	}

	keys := []string{blockUserKey(username)}
	if addr != "" {
		keys = append(keys, blockIPKey(addr))
	}

	blocked, err := g.store.Exists(ctx, keys...)
	if err != nil {
		return err
	}
	if blocked {
		return ErrBlocked
	}
	return nil
}

// Outcome reports what a recorded failure did.
type Outcome struct {
	UserAttempts int64
	AddrAttempts int64
	UserBlocked  bool
	AddrBlocked  bool
}

// Blocked reports whether the failure created any block.
func (o Outcome) Blocked() bool { return o.UserBlocked || o.AddrBlocked }

// RecordFailure counts a failed attempt against username and addr. Reaching
// MaxAttempts sets a block for BlockDuration and clears the counter, so a fresh
// budget starts once the block lapses. Whitelisted addresses are not counted.
func (g *Guard) RecordFailure(ctx context.Context, username, addr string) (Outcome, error) {
	var out Outcome

	n, blocked, err := g.countFailure(ctx, failUserKey(username), blockUserKey(username))
	if err != nil {
		return out, err
	}
	out.UserAttempts, out.UserBlocked = n, blocked

	if addr != "" && !g.Whitelisted(addr) {
		n, blocked, err = g.countFailure(ctx, failIPKey(addr), blockIPKey(addr))
		if err != nil {
			return out, err
		}
		out.AddrAttempts, out.AddrBlocked = n, blocked
	}

	return out, nil
}

func (g *Guard) countFailure(ctx context.Context, counterKey, blockKey string) (int64, bool, error) {
	count, err := g.store.Increment(ctx, counterKey, g.config.AttemptWindow)
	if err != nil {
		return 0, false, err
	}
	if count < int64(g.config.MaxAttempts) {
		return count, false, nil
	}

	if err := g.store.SetWithExpiry(ctx, blockKey, g.config.BlockDuration); err != nil {
		return count, false, err
	}
	if err := g.store.Delete(ctx, counterKey); err != nil {
		return count, true, err
	}
	return count, true, nil
}

// RecordSuccess clears both failure counters. Active blocks are left alone.
func (g *Guard) RecordSuccess(ctx context.Context, username, addr string) error {
	keys := []string{failUserKey(username)}
	if addr != "" {
		keys = append(keys, failIPKey(addr))
	}
	return g.store.Delete(ctx, keys...)
}

// Attempts returns the current failure counters.
func (g *Guard) Attempts(ctx context.Context, username, addr string) (user, address int64, err error) {
	user, err = g.store.Count(ctx, failUserKey(username))
	if err != nil {
		return 0, 0, err
	}
	if addr != "" {
		address, err = g.store.Count(ctx, failIPKey(addr))
		if err != nil {
			return 0, 0, err
		}
	}
	return user, address, nil
}

// Unblock lifts blocks and counters for username and addr.
func (g *Guard) Unblock(ctx context.Context, username, addr string) error {
	keys := []string{blockUserKey(username), failUserKey(username)}
	if addr != "" {
		keys = append(keys, blockIPKey(addr), failIPKey(addr))
	}
	return g.store.Delete(ctx, keys...)
}

func failUserKey(username string) string { return "fail_user:" + username }
func failIPKey(addr string) string { return "fail_ip:" + addr }
func blockUserKey(username string) string { return "block_user:" + username }
func blockIPKey(addr string) string { return "block_ip:" + addr }
