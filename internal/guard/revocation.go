package guard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const revokedSet = "blacklisted_tokens"

// Revoke adds token to the revocation set until expiresAt. Tokens that have
// already expired are not stored.
func (g *Guard) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	if !expiresAt.After(g.now()) {
		return nil
	}
	return g.store.AddToSet(ctx, revokedSet, tokenDigest(token), expiresAt)
}

// IsRevoked reports whether token is in the revocation set.
func (g *Guard) IsRevoked(ctx context.Context, token string) (bool, error) {
	return g.store.IsMember(ctx, revokedSet, tokenDigest(token), g.now())
}

// Sweep drops revocations whose tokens have expired.
func (g *Guard) Sweep(ctx context.Context) (int64, error) {
	return g.store.RemoveExpired(ctx, revokedSet, g.now())
}

// Stored values are digests so a dump of the store never yields usable tokens.
func tokenDigest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
