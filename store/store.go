package store

import (
	"context"
	"time"
)

// Store is the counter/blacklist collaborator.
//
// Missing counters read as zero. Errors are classified as errs.KindStorage.
type Store interface {
	// Increment adds one to key and returns the new value. The expiry is set only
	// when the counter is created, giving fixed-window semantics.
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
	// Count returns the current value of key, or zero if it does not exist.
	Count(ctx context.Context, key string) (int64, error)
	// Exists reports whether any of keys exists.
	Exists(ctx context.Context, keys ...string) (bool, error)
	// SetWithExpiry creates or replaces a marker key with the given lifetime.
	SetWithExpiry(ctx context.Context, key string, ttl time.Duration) error
	// SetIfAbsent creates a marker key only if it does not exist and reports
	// whether it was created.
	SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	// AddToSet adds member to set until expiresAt.
	AddToSet(ctx context.Context, set, member string, expiresAt time.Time) error
	// IsMember reports whether member is in set and has not expired at now.
	IsMember(ctx context.Context, set, member string, now time.Time) (bool, error)
	// RemoveExpired drops members of set that expired at or before now.
	RemoveExpired(ctx context.Context, set string, now time.Time) (int64, error)
	// Ping checks connectivity.
	Ping(ctx context.Context) error
}
