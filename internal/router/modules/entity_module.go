package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/tripdesk/internal/application"
	handlers "github.com/oksasatya/tripdesk/internal/interface/http"
	"github.com/oksasatya/tripdesk/internal/interface/middleware"
	"github.com/oksasatya/tripdesk/pkg/helpers"
)

// EntityModule mounts one schema-described resource under /<name>.
// Reads of unowned resources are public; everything else requires a session.
type EntityModule struct {
	Handler *handlers.EntityHandler
	Auth    *application.AuthService
	Cookies *helpers.Manager
	Redis   *redis.Client
}

func NewEntityModule(h *handlers.EntityHandler, auth *application.AuthService, cookies *helpers.Manager, rdb *redis.Client) *EntityModule {
	return &EntityModule{Handler: h, Auth: auth, Cookies: cookies, Redis: rdb}
}

func (m *EntityModule) Register(rg *gin.RouterGroup) {
	schema := m.Handler.Svc.Schema()
	base := "/" + schema.Name

	read := middleware.OptionalAuth(m.Auth, m.Cookies)
	if schema.Owned() {
		read = middleware.Auth(m.Auth, m.Cookies)
	}
	rg.GET(base, read, m.Handler.List)
	rg.GET(base+"/:id", read, m.Handler.Get)

	w := rg.Group(base)
	w.Use(middleware.Auth(m.Auth, m.Cookies))
	w.Use(middleware.RateLimit(m.Redis, 300, time.Minute, middleware.KeyByUserID(), nil))
	{
		w.POST("", m.Handler.Create)
		w.POST("/bulk", m.Handler.BulkCreate)
		w.PUT("", m.Handler.Update)
		w.PUT("/:id", m.Handler.Update)
		w.DELETE("", m.Handler.Delete)
		w.DELETE("/:id", m.Handler.Delete)
	}
}
