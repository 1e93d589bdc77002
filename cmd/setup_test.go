package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/laisky-blog-rest/library/throttle"
)

// setConfig sets key for the duration of the test
func setConfig(t *testing.T, key string, value any) {
	t.Helper()
	old := gconfig.Shared.Get(key)
	gconfig.Shared.Set(key, value)
	t.Cleanup(func() { gconfig.Shared.Set(key, old) })
}

func TestNewLoginThrottleMemory(t *testing.T) {
	setConfig(t, "settings.db.redis.addr", "")
	setConfig(t, "settings.auth.login_max_failures", 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	th, closer, err := newLoginThrottle(ctx)
	require.NoError(t, err)
	defer closer()
	require.IsType(t, &throttle.Memory{}, th)

	for i := 0; i < 2; i++ {
		require.NoError(t, th.RecordFailure(ctx, "a@example.com"))
	}
	ok, err := th.Check(ctx, "a@example.com")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewLoginThrottleRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	setConfig(t, "settings.db.redis.addr", mr.Addr())
	setConfig(t, "settings.auth.login_window", "1m")

	ctx := context.Background()
	th, closer, err := newLoginThrottle(ctx)
	require.NoError(t, err)
	defer closer()
	require.IsType(t, &throttle.Redis{}, th)

	require.NoError(t, th.RecordFailure(ctx, "a@example.com"))
	require.Len(t, mr.Keys(), 1)
	require.Equal(t, time.Minute, mr.TTL(mr.Keys()[0]))
}

func TestNewLoginThrottleRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	setConfig(t, "settings.db.redis.addr", addr)

	_, _, err := newLoginThrottle(context.Background())
	require.Error(t, err)
}

func TestNewImageUploaderDisabled(t *testing.T) {
	setConfig(t, "settings.media.enabled", false)

	uploader, err := newImageUploader()
	require.NoError(t, err)
	require.Nil(t, uploader)
}

func TestOpenStoreDry(t *testing.T) {
	setConfig(t, "dry", true)

	store, err := openStore(context.Background())
	require.NoError(t, err)
	closeStore(store)
}
