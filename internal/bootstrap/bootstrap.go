// Package bootstrap 两个进程（用户端 / 管理端）共用的依赖装配
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"newsfeed-account/internal/core/auth"
	"newsfeed-account/internal/core/cache"
	"newsfeed-account/internal/core/config"
	"newsfeed-account/internal/core/database"
	"newsfeed-account/internal/core/events"
	"newsfeed-account/internal/domain"
	"newsfeed-account/internal/feature/account"
	"newsfeed-account/internal/repo"
	"newsfeed-account/internal/service"
	"newsfeed-account/pkg/utils"
)

type Deps struct {
	Accounts *service.AccountService
	JWTer    *auth.JWTer

	closers []func() error
}

// Close 逆序释放
func (d *Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i]()
	}
}

func Wire(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Deps, error) {
	d := &Deps{
		JWTer: auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.AccessTokenTTLMin)*time.Minute),
	}

	store, err := d.openStore(cfg, l)
	if err != nil {
		d.Close()
		return nil, err
	}

	opts := []service.Option{service.WithLogger(l.Named("account"))}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		d.closers = append(d.closers, rdb.Close)

		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rdb.Ping(pctx).Err(); err != nil {
			// 缓存读失败会回源，事件发送失败只记日志，这里不阻止启动
			l.Warn("redis unreachable, cache and events degraded", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()

		if ttl := time.Duration(cfg.Account.ProfileCacheTTLSec) * time.Second; ttl > 0 {
			opts = append(opts, service.WithProfileCache(cache.NewProfileCache(cache.NewWithClient(rdb, "profile"), ttl, l)))
		}
		opts = append(opts, service.WithEvents(events.NewPublisher(rdb, cfg.Account.EventsStream)))
		l.Info("redis enabled", zap.String("addr", cfg.Redis.Addr), zap.String("stream", cfg.Account.EventsStream))
	}

	d.Accounts = service.NewAccountService(
		store,
		utils.NewBcryptCodec(cfg.Account.BcryptCost),
		service.Policy{AllowEmailReuseAfterDeletion: cfg.Account.AllowEmailReuseAfterDeletion},
		opts...,
	)
	return d, nil
}

func (d *Deps) openStore(cfg *config.Config, l *zap.Logger) (domain.AccountStore, error) {
	if cfg.DB.Driver == "memory" {
		l.Warn("using in-memory account store, data is lost on exit")
		return repo.NewMemoryAccountRepo(), nil
	}

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	}, l)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	d.closers = append(d.closers, sqlDB.Close)
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(&account.AccountModel{}); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		l.Info("automigrate done")
	}
	return repo.NewAccountRepo(db), nil
}
