package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	resp "newsfeed-account/internal/transport/http/response"
)

// ConcurrencyLimit 同时处理的请求不超过 max；满了最多排队 wait，仍拿不到就 503。
// 注册/登录/改密都要跑 bcrypt，放任并发会把 CPU 和连接池一起拖垮
func ConcurrencyLimit(max int64, wait time.Duration) gin.HandlerFunc {
	sem := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		if !sem.TryAcquire(1) {
			ctx, cancel := context.WithTimeout(c.Request.Context(), wait)
			err := sem.Acquire(ctx, 1)
			cancel()
			if err != nil {
				abort(c, resp.CodeUnavailable, "server busy, retry later")
				return
			}
		}
		defer sem.Release(1)
		c.Next()
	}
}
