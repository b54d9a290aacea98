package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"newsfeed-account/internal/core/auth"
	"newsfeed-account/internal/domain"
	mdw "newsfeed-account/internal/transport/http/middleware"
)

// NewAdminEngine 管理端 v1（统一要求 admin 角色）
func NewAdminEngine(l *zap.Logger, reg *Registry, jwter *auth.JWTer, o EngineOptions) *gin.Engine {
	r := baseEngine(l, o.withDefaults())
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(jwter, domain.RoleAdmin))
	reg.MountAdmin(admin)
	return r
}
