package throttle

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "blog/login-failures/"

// Redis is a fixed window throttle shared by every api replica.
//
// The window starts at the first failure and the counter expires with it.
type Redis struct {
	rdb    redis.UniversalClient
	max    int
	window time.Duration
}

// NewRedis creates a throttle allowing max failures per window
func NewRedis(rdb redis.UniversalClient, max int, window time.Duration) (*Redis, error) {
	if rdb == nil {
		return nil, errors.New("redis client is nil")
	}
	if err := validate(max, window); err != nil {
		return nil, err
	}

	return &Redis{rdb: rdb, max: max, window: window}, nil
}

func (r *Redis) key(key string) string {
	return redisKeyPrefix + key
}

// Check implements LoginThrottle
func (r *Redis) Check(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Get(ctx, r.key(key)).Int()
	switch {
	case errors.Is(err, redis.Nil):
		return true, nil
	case err != nil:
		return false, errors.Wrap(err, "get failure counter")
	}

	return n < r.max, nil
}

// RecordFailure implements LoginThrottle
func (r *Redis) RecordFailure(ctx context.Context, key string) error {
	k := r.key(key)
	n, err := r.rdb.Incr(ctx, k).Result()
	if err != nil {
		return errors.Wrap(err, "incr failure counter")
	}

	if n == 1 {
		if err = r.rdb.Expire(ctx, k, r.window).Err(); err != nil {
			return errors.Wrap(err, "expire failure counter")
		}
	}

	return nil
}

// Reset implements LoginThrottle
func (r *Redis) Reset(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.key(key)).Err(); err != nil {
		return errors.Wrap(err, "delete failure counter")
	}
	return nil
}
