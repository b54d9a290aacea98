package router

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type recMod struct {
	name string
	prio int
	log  *[]string
}

func (m recMod) MountAPI(*gin.RouterGroup) { *m.log = append(*m.log, "api:"+m.name) }
func (m recMod) Priority() int             { return m.prio }

type adminOnly struct{ log *[]string }

func (m adminOnly) MountAdmin(*gin.RouterGroup) { *m.log = append(*m.log, "admin") }

func TestRegistry_MountOrder(t *testing.T) {
	var log []string
	reg := NewRegistry(
		recMod{name: "late", prio: 200, log: &log},
		recMod{name: "first", prio: 1, log: &log},
		adminOnly{log: &log},
		recMod{name: "second", prio: 1, log: &log},
	)

	g := gin.New().Group("/")
	reg.MountAPI(g)
	reg.MountAdmin(g)
	assert.Equal(t, []string{"api:first", "api:second", "api:late", "admin"}, log)
}

func TestRegistry_RejectsUselessModule(t *testing.T) {
	assert.Panics(t, func() { NewRegistry(struct{}{}) })
}
