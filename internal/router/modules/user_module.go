package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/tripdesk/internal/application"
	"github.com/oksasatya/tripdesk/internal/domain/entity"
	handlers "github.com/oksasatya/tripdesk/internal/interface/http"
	"github.com/oksasatya/tripdesk/internal/interface/middleware"
	"github.com/oksasatya/tripdesk/pkg/helpers"
)

// UserModule wires the user endpoints.
// Public: POST /user. Admin: DELETE /user, POST /users, PUT /users/:uid/password.
// Everything else requires a session.
type UserModule struct {
	Handler *handlers.UserHandler
	Auth    *application.AuthService
	Cookies *helpers.Manager
	Redis   *redis.Client
}

func NewUserModule(h *handlers.UserHandler, auth *application.AuthService, cookies *helpers.Manager, rdb *redis.Client) *UserModule {
	return &UserModule{Handler: h, Auth: auth, Cookies: cookies, Redis: rdb}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	registerLimiter := middleware.RateLimit(m.Redis, 20, time.Minute, middleware.KeyByIPAndPath(), nil)
	rg.POST("/user", registerLimiter, middleware.OptionalAuth(m.Auth, m.Cookies), m.Handler.Register)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.Auth, m.Cookies))
	auth.Use(middleware.RateLimit(m.Redis, 300, time.Minute, middleware.KeyByUserID(), nil))
	{
		auth.GET("/user", m.Handler.Me)
		auth.GET("/id", m.Handler.Me)
		auth.PUT("/user", m.Handler.Update)
		auth.GET("/users", m.Handler.List)
		auth.GET("/users/search", m.Handler.Search)
		auth.GET("/grade_data", m.Handler.GetDocument(application.GradeData))
		auth.PUT("/grade_data", m.Handler.PutDocument(application.GradeData))
		auth.GET("/apexam", m.Handler.GetDocument(application.APExam))
		auth.PUT("/apexam", m.Handler.PutDocument(application.APExam))
		auth.POST("/user/pfp", m.Handler.UploadPfp)
		auth.DELETE("/user/pfp", m.Handler.ClearPfp)
	}

	admin := auth.Group("/")
	admin.Use(middleware.RequireRole(entity.RoleAdmin))
	{
		admin.DELETE("/user", m.Handler.Delete)
		admin.POST("/users", m.Handler.BulkCreate)
		admin.PUT("/users/:uid/password", m.Handler.ResetPassword)
	}
}
