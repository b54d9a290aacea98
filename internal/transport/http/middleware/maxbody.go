package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "newsfeed-account/internal/transport/http/response"
)

// MaxBodyBytes 声明长度超限直接 413；chunked 等未知长度的请求在读取时由
// http.MaxBytesReader 截断，错误由 ez 的绑定层翻译成 413
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			abort(c, resp.CodeTooLarge, "")
			return
		}
		if c.Request.Body != nil && c.Request.Body != http.NoBody {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
