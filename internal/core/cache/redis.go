package cache

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

var lookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "cache_lookups_total", Help: "Read-through cache lookups by result"},
	[]string{"cache", "result"}, // result: hit / miss / error
)

func init() { prometheus.MustRegister(lookups) }

// Cache redis 读穿缓存；redis 故障时直接回源，读路径不受影响
type Cache struct {
	rdb  *redis.Client
	name string
	sf   singleflight.Group
}

func NewWithClient(rdb *redis.Client, name string) *Cache {
	return &Cache{rdb: rdb, name: name}
}

// GetOrLoad 未命中时回源并回填；同 key 并发回源合并为一次。load 的错误不缓存。
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		lookups.WithLabelValues(c.name, "hit").Inc()
		return b, nil
	case errors.Is(err, redis.Nil):
		lookups.WithLabelValues(c.name, "miss").Inc()
	default:
		lookups.WithLabelValues(c.name, "error").Inc()
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		b, err := load(ctx)
		if err != nil {
			return nil, err
		}
		// 回填失败不影响本次结果
		_ = c.rdb.Set(ctx, key, b, ttl).Err()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Cache) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}
