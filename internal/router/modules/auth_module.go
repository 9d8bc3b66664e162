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

// AuthModule mounts the session endpoints:
// POST /authenticate (IP rate limited) and DELETE /authenticate (authenticated).
type AuthModule struct {
	Handler    *handlers.AuthHandler
	Auth       *application.AuthService
	Cookies    *helpers.Manager
	Redis      *redis.Client
	LoginLimit int
	// Exempt lists CIDRs (e.g. an office NAT) that skip the login limiter.
	Exempt []string
}

func NewAuthModule(h *handlers.AuthHandler, auth *application.AuthService, cookies *helpers.Manager, rdb *redis.Client, loginLimit int, exempt []string) *AuthModule {
	return &AuthModule{Handler: h, Auth: auth, Cookies: cookies, Redis: rdb, LoginLimit: loginLimit, Exempt: exempt}
}

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	var allow middleware.AllowFunc
	if len(m.Exempt) > 0 {
		allow = middleware.AllowCIDRs(m.Exempt)
	}
	loginLimiter := middleware.RateLimit(m.Redis, m.LoginLimit, time.Minute, middleware.KeyByIPAndPath(), allow)
	rg.POST("/authenticate", loginLimiter, m.Handler.Login)
	rg.DELETE("/authenticate", middleware.Auth(m.Auth, m.Cookies), m.Handler.Logout)
}
