package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"

	"newsfeed-account/internal/domain"
)

// ProfileCache 账号资料的读穿缓存，key: account:profile:<id>。
// 只缓存成功结果；not found 不做负缓存，避免注销/更新后读到旧结果。
type ProfileCache struct {
	c   *Cache
	ttl time.Duration
	log *zap.Logger
}

func NewProfileCache(c *Cache, ttl time.Duration, l *zap.Logger) *ProfileCache {
	return &ProfileCache{c: c, ttl: ttl, log: l}
}

func ProfileKey(id int64) string { return "account:profile:" + strconv.FormatInt(id, 10) }

func (p *ProfileCache) GetOrLoad(ctx context.Context, id int64, load func(context.Context) (*domain.Profile, error)) (*domain.Profile, error) {
	b, err := p.c.GetOrLoad(ctx, ProfileKey(id), p.ttl, func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return nil, err
	}
	var out domain.Profile
	if err := json.Unmarshal(b, &out); err != nil || out.ID != id {
		// 脏数据：删掉后直接回源
		p.log.Warn("profile cache entry corrupt", zap.Int64("account_id", id), zap.Error(err))
		p.Invalidate(ctx, id)
		return load(ctx)
	}
	return &out, nil
}

func (p *ProfileCache) Invalidate(ctx context.Context, id int64) {
	if err := p.c.Del(ctx, ProfileKey(id)); err != nil {
		p.log.Warn("profile cache invalidate failed", zap.Int64("account_id", id), zap.Error(err))
	}
}
