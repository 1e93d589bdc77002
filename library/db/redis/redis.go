// Package redis opens the redis client used for shared counters.
package redis

import (
	"context"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/redis/go-redis/v9"

	"github.com/Laisky/laisky-blog-rest/library/log"
)

// DialInfo redis dial info
type DialInfo struct {
	Addr string
	Pwd  string
	DB   int
}

// NewDB creates a redis client and checks that the server answers
func NewDB(ctx context.Context, dialInfo DialInfo) (*redis.Client, error) {
	if dialInfo.Addr == "" {
		return nil, errors.New("redis addr is required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     dialInfo.Addr,
		Password: dialInfo.Pwd,
		DB:       dialInfo.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "ping redis %s", dialInfo.Addr)
	}

	log.Logger.Info("connected to redis", zap.String("addr", dialInfo.Addr), zap.Int("db", dialInfo.DB))
	return rdb, nil
}
