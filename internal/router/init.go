package router

import (
	"github.com/oksasatya/tripdesk/internal/container"
	"github.com/oksasatya/tripdesk/internal/infrastructure/upstream"
	handlers "github.com/oksasatya/tripdesk/internal/interface/http"
	"github.com/oksasatya/tripdesk/internal/router/modules"
)

// InitModules builds the handlers over c and registers every module.
// Call once during startup, before RegisterAll.
func InitModules(r *Registry, c *container.Container) {
	cfg := c.Config

	r.Add(modules.NewAuthModule(
		handlers.NewAuthHandler(c.Auth, c.Cookies, c.Logger),
		c.Auth, c.Cookies, c.Redis, cfg.RateLimitLogin, cfg.RateLimitAllowCIDRs(),
	))
	r.Add(modules.NewUserModule(
		handlers.NewUserHandler(c.UserService, c.Logger),
		c.Auth, c.Cookies, c.Redis,
	))
	for _, svc := range c.EntitySvcs {
		r.Add(modules.NewEntityModule(handlers.NewEntityHandler(svc, c.Logger), c.Auth, c.Cookies, c.Redis))
	}

	client := upstream.NewNinjasClient(cfg.UpstreamBaseURL, cfg.UpstreamAPIKey, cfg.UpstreamTimeout)
	r.Add(modules.NewUpstreamModule(handlers.NewUpstreamHandler(client, c.Logger), c.Auth, c.Cookies, c.Redis))

	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule(c.Redis))
	}
}
