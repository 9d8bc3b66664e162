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

type UpstreamModule struct {
	Handler *handlers.UpstreamHandler
	Auth    *application.AuthService
	Cookies *helpers.Manager
	Redis   *redis.Client
}

func NewUpstreamModule(h *handlers.UpstreamHandler, auth *application.AuthService, cookies *helpers.Manager, rdb *redis.Client) *UpstreamModule {
	return &UpstreamModule{Handler: h, Auth: auth, Cookies: cookies, Redis: rdb}
}

func (m *UpstreamModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/upstream")
	g.Use(middleware.Auth(m.Auth, m.Cookies))
	// the external API is metered, keep callers well under its quota
	g.Use(middleware.RateLimit(m.Redis, 30, time.Minute, middleware.KeyByUserID(), nil))
	{
		g.GET("/weather", m.Handler.Weather)
		g.GET("/currency", m.Handler.Currency)
	}
}
