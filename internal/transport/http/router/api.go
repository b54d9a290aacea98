package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"newsfeed-account/internal/core/server"
	"newsfeed-account/internal/transport/http/ez"
	mdw "newsfeed-account/internal/transport/http/middleware"
)

type EngineOptions struct {
	HandlerTimeout time.Duration
	MaxBodyBytes   int64
}

func (o EngineOptions) withDefaults() EngineOptions {
	if o.HandlerTimeout <= 0 {
		o.HandlerTimeout = 10 * time.Second
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 1 << 20
	}
	return o
}

// 两个 engine 共用的中间件链
func baseEngine(l *zap.Logger, o EngineOptions) *gin.Engine {
	ez.RegisterValidators()
	r := server.NewRouter(l)
	r.Use(
		mdw.RequestID(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300, 200*time.Millisecond),
		mdw.MaxBodyBytes(o.MaxBodyBytes),
		mdw.Timeout(o.HandlerTimeout),
		mdw.Recovery(l),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", mdw.MetricsHandler())
	return r
}

func NewAPIEngine(l *zap.Logger, reg *Registry, o EngineOptions) *gin.Engine {
	r := baseEngine(l, o.withDefaults())
	reg.MountAPI(r.Group("/api/v1"))
	return r
}
