package router

import (
	"fmt"
	"slices"

	"github.com/gin-gonic/gin"
)

// 模块实现其一或两者皆可
type APIModule interface{ MountAPI(*gin.RouterGroup) }
type AdminModule interface{ MountAdmin(*gin.RouterGroup) }

// 实现 Priority 可控制挂载顺序，小的先挂；默认 defaultPriority
type prioritizer interface{ Priority() int }

const defaultPriority = 100

// Registry 在 main 里组装，两个 engine 共用同一份
type Registry struct {
	api   []APIModule
	admin []AdminModule
}

func NewRegistry(mods ...any) *Registry {
	r := &Registry{}
	for _, m := range mods {
		r.Register(m)
	}
	return r
}

// Register 两个接口都没实现属于装配错误，启动期直接 panic
func (r *Registry) Register(mod any) {
	api, isAPI := mod.(APIModule)
	admin, isAdmin := mod.(AdminModule)
	if !isAPI && !isAdmin {
		panic(fmt.Sprintf("router: %T mounts nothing", mod))
	}
	if isAPI {
		r.api = insertByPriority(r.api, api)
	}
	if isAdmin {
		r.admin = insertByPriority(r.admin, admin)
	}
}

func (r *Registry) MountAPI(g *gin.RouterGroup) {
	for _, m := range r.api {
		m.MountAPI(g)
	}
}

func (r *Registry) MountAdmin(g *gin.RouterGroup) {
	for _, m := range r.admin {
		m.MountAdmin(g)
	}
}

// 同优先级保持注册顺序
func insertByPriority[M any](mods []M, m M) []M {
	p := priorityOf(m)
	i := slices.IndexFunc(mods, func(x M) bool { return priorityOf(x) > p })
	if i < 0 {
		return append(mods, m)
	}
	return slices.Insert(mods, i, m)
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return defaultPriority
}
