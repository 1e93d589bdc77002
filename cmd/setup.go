package cmd

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/laisky-blog-rest/internal/web/blog/dao"
	"github.com/Laisky/laisky-blog-rest/library/config"
	rdb "github.com/Laisky/laisky-blog-rest/library/db/redis"
	"github.com/Laisky/laisky-blog-rest/library/log"
	"github.com/Laisky/laisky-blog-rest/library/media"
	"github.com/Laisky/laisky-blog-rest/library/throttle"
)

const (
	defaultLoginMaxFailures = 5
	defaultLoginWindow      = 15 * time.Minute
)

// openStore opens the configured store and prepares its indexes/tables.
// Dry runs use the memory store.
func openStore(ctx context.Context) (dao.Store, error) {
	cfg := dao.ConfigFromSettings()
	if gconfig.Shared.GetBool("dry") {
		cfg = dao.Config{Driver: dao.DriverMemory}
	}

	store, err := dao.Open(ctx, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s store", cfg.Driver)
	}
	if err = store.Setup(ctx); err != nil {
		closeStore(store)
		return nil, errors.Wrapf(err, "setup %s store", cfg.Driver)
	}

	log.Logger.Info("blog store ready", zap.String("driver", cfg.Driver))
	return store, nil
}

func closeStore(store dao.Store) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.Close(ctx); err != nil {
		log.Logger.Error("close blog store", zap.Error(err))
	}
}

// newLoginThrottle counts failures in redis when `settings.db.redis.addr` is set,
// otherwise in process. The returned closer releases the redis client.
func newLoginThrottle(ctx context.Context) (throttle.LoginThrottle, func(), error) {
	max := config.GetIntDefault("settings.auth.login_max_failures", defaultLoginMaxFailures)
	window := config.GetDuration("settings.auth.login_window", defaultLoginWindow)

	addr := gconfig.Shared.GetString("settings.db.redis.addr")
	if addr == "" {
		th, err := throttle.NewMemory(ctx, max, window)
		if err != nil {
			return nil, nil, errors.Wrap(err, "new memory throttle")
		}

		return th, func() {}, nil
	}

	cli, err := rdb.NewDB(ctx, rdb.DialInfo{
		Addr: addr,
		Pwd:  gconfig.Shared.GetString("settings.db.redis.pwd"),
		DB:   gconfig.Shared.GetInt("settings.db.redis.db"),
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect redis")
	}

	th, err := throttle.NewRedis(cli, max, window)
	if err != nil {
		_ = cli.Close()
		return nil, nil, errors.Wrap(err, "new redis throttle")
	}

	return th, func() {
		if err := cli.Close(); err != nil {
			log.Logger.Error("close redis", zap.Error(err))
		}
	}, nil
}

// newImageUploader returns nil when `settings.media.enabled` is off
func newImageUploader() (media.Uploader, error) {
	cfg, ok := media.ConfigFromSettings()
	if !ok {
		return nil, nil
	}

	uploader, err := media.NewMinIO(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "new minio uploader")
	}

	log.Logger.Info("offload inline images",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket))
	return uploader, nil
}
