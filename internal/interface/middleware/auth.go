package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/tripdesk/internal/application"
	"github.com/oksasatya/tripdesk/internal/domain/entity"
	"github.com/oksasatya/tripdesk/pkg/helpers"
	"github.com/oksasatya/tripdesk/pkg/response"
)

const (
	CtxUserKey = "user"
	CtxUIDKey  = "uid"
)

// Auth validates the session token from the cookie (or bearer header) and
// sets the acting user in the Gin context. Auth failures abort with 401,
// anything else (e.g. the user store being down) with 500.
func Auth(auth *application.AuthService, cookies *helpers.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := auth.Validate(c.Request.Context(), cookies.Token(c))
		if err != nil {
			abortValidate(c, auth, err)
			return
		}
		setUser(c, u)
		c.Next()
	}
}

// OptionalAuth attaches the user when a valid token is present and continues anonymously otherwise.
func OptionalAuth(auth *application.AuthService, cookies *helpers.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := cookies.Token(c); token != "" {
			u, err := auth.Validate(c.Request.Context(), token)
			switch {
			case err == nil:
				setUser(c, u)
			case !isAuthError(err):
				abortValidate(c, auth, err)
				return
			}
		}
		c.Next()
	}
}

// RequireRole must run after Auth. Roles match exactly.
func RequireRole(role entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !application.Authorize(CurrentUser(c), role) {
			response.Abort(c, http.StatusForbidden, "forbidden", nil)
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user set by Auth or OptionalAuth, or nil.
func CurrentUser(c *gin.Context) *entity.User {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*entity.User)
	return u
}

func setUser(c *gin.Context, u *entity.User) {
	c.Set(CtxUserKey, u)
	c.Set(CtxUIDKey, u.UID)
}

func isAuthError(err error) bool {
	return errors.Is(err, application.ErrUnauthenticated) ||
		errors.Is(err, application.ErrTokenExpired) ||
		errors.Is(err, application.ErrTokenInvalid) ||
		errors.Is(err, application.ErrUserNotFound)
}

func abortValidate(c *gin.Context, auth *application.AuthService, err error) {
	if isAuthError(err) {
		response.Abort(c, http.StatusUnauthorized, authMessage(err), nil)
		return
	}
	helpers.LogError(auth.Logger, "session lookup failed", err, helpers.RequestFields(c))
	response.Abort(c, http.StatusInternalServerError, "internal error", nil)
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, application.ErrUnauthenticated):
		return "missing session token"
	case errors.Is(err, application.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, application.ErrUserNotFound):
		return "user not found"
	default:
		return "invalid session token"
	}
}
