package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	resp "newsfeed-account/internal/transport/http/response"
)

// Timeout 给请求 context 挂截止时间，d<=0 不限时。
// handler 不会被强行打断：store 和 bcrypt 之外的调用看到 ctx 取消后自行返回，
// 若此时还没写响应就补一个 504
func Timeout(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if c.Writer.Written() || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return
		}
		_ = c.Error(ctx.Err())
		abort(c, resp.CodeTimeout, "request timed out")
	}
}
