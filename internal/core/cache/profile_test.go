package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"newsfeed-account/internal/domain"
)

// 指向一个不可达地址：所有 redis 调用都失败，缓存退化为直接回源
func unreachableCache(t *testing.T, name string) *Cache {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewWithClient(rdb, name)
}

func TestProfileCache_FallsBackToLoaderWhenRedisDown(t *testing.T) {
	pc := NewProfileCache(unreachableCache(t, "profile_down"), time.Minute, zap.NewNop())

	var calls int32
	load := func(context.Context) (*domain.Profile, error) {
		atomic.AddInt32(&calls, 1)
		return &domain.Profile{ID: 1, Email: "a@x.com"}, nil
	}

	p, err := pc.GetOrLoad(context.Background(), 1, load)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", p.Email)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, float64(1), testutil.ToFloat64(lookups.WithLabelValues("profile_down", "error")))
}

func TestProfileCache_LoaderErrorPropagates(t *testing.T) {
	pc := NewProfileCache(unreachableCache(t, "profile_err"), time.Minute, zap.NewNop())

	_, err := pc.GetOrLoad(context.Background(), 2, func(context.Context) (*domain.Profile, error) {
		return nil, domain.NotFound("")
	})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestProfileCache_InvalidateFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pc := NewProfileCache(unreachableCache(t, "profile_inv"), time.Minute, zap.New(core))

	pc.Invalidate(context.Background(), 3)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(3), logs.All()[0].ContextMap()["account_id"])
}

func TestProfileKey(t *testing.T) {
	assert.Equal(t, "account:profile:42", ProfileKey(42))
}
