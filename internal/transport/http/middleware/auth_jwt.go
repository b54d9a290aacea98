package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"newsfeed-account/internal/core/auth"
	resp "newsfeed-account/internal/transport/http/response"
)

const (
	KeyClaims    = "claims"
	KeyAccountID = "accountId"
	KeyRole      = "role"
)

// AuthJWT 校验 Bearer token；requireRole 为空表示任意已登录账号
func AuthJWT(j *auth.JWTer, requireRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			abort(c, resp.CodeUnauthorized, "missing token")
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			abort(c, resp.CodeUnauthorized, "invalid token")
			return
		}
		if requireRole != "" && claims.Role != requireRole {
			abort(c, resp.CodeForbidden, "")
			return
		}
		c.Set(KeyClaims, claims)
		c.Set(KeyAccountID, claims.AccountID)
		c.Set(KeyRole, claims.Role)
		c.Next()
	}
}

// AccountID 取当前登录账号 id
func AccountID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(KeyAccountID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok && id > 0
}
