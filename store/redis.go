package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/lockana/errs"
)

// ErrUnavailable is the classification for backend failures.
var ErrUnavailable = errs.New(errs.KindStorage, "counter store unavailable")

// Redis implements Store on a go-redis client. Sets are sorted sets scored by
// expiry time in unix seconds.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis wraps client. prefix is prepended to every key.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(k string) string { return r.prefix + k }

func unavailable(err error) error {
	return &errs.Error{Kind: errs.KindStorage, Message: ErrUnavailable.Message, Err: err}
}

// Increment runs INCR and EXPIRE NX in one MULTI/EXEC, so a counter never
// exists without its window and later hits do not extend it.
func (r *Redis) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := r.key(key)
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		if window > 0 {
			pipe.ExpireNX(ctx, k, window)
		}
		return nil
	})
	if err != nil {
		return 0, unavailable(err)
	}
	return incr.Val(), nil
}

func (r *Redis) Count(ctx context.Context, key string) (int64, error) {
	count, err := r.client.Get(ctx, r.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, unavailable(err)
	}
	if count < 0 {
		return 0, nil
	}
	return count, nil
}

func (r *Redis) Exists(ctx context.Context, keys ...string) (bool, error) {
	if len(keys) == 0 {
		return false, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	n, err := r.client.Exists(ctx, full...).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

func (r *Redis) SetWithExpiry(ctx context.Context, key string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(key), 1, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *Redis) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(key), 1, ttl).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return ok, nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}
	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *Redis) AddToSet(ctx context.Context, set, member string, expiresAt time.Time) error {
	err := r.client.ZAdd(ctx, r.key(set), redis.Z{
		Score:  float64(expiresAt.Unix()),
		Member: member,
	}).Err()
	if err != nil {
		return unavailable(err)
	}
	return nil
}

func (r *Redis) IsMember(ctx context.Context, set, member string, now time.Time) (bool, error) {
	score, err := r.client.ZScore(ctx, r.key(set), member).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, unavailable(err)
	}
	return int64(score) > now.Unix(), nil
}

func (r *Redis) RemoveExpired(ctx context.Context, set string, now time.Time) (int64, error) {
	n, err := r.client.ZRemRangeByScore(ctx, r.key(set), "-inf", strconv.FormatInt(now.Unix(), 10)).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}
