package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/tripdesk/internal/application"
	"github.com/oksasatya/tripdesk/internal/domain/entity"
	"github.com/oksasatya/tripdesk/internal/domain/repository"
	"github.com/oksasatya/tripdesk/internal/infrastructure/memory"
	"github.com/oksasatya/tripdesk/pkg/helpers"
)

func init() { gin.SetMode(gin.TestMode) }

func newAuthEngine(t *testing.T) (*gin.Engine, *application.AuthService, *helpers.Manager) {
	t.Helper()
	store := memory.NewStore()
	logger := helpers.NewDiscardLogger()
	users := application.NewUserService(store.Users(), logger, "changeme")
	_, err := users.Register(context.Background(), application.RegisterInput{UID: "alice", Name: "Alice", Password: "pw1"})
	require.NoError(t, err)
	_, err = users.Register(context.Background(), application.RegisterInput{UID: "root", Name: "Root", Password: "pw2", Role: "Admin"})
	require.NoError(t, err)

	auth := application.NewAuthService(store.Users(), helpers.NewJWTManager("secret", time.Hour), logger, nil)
	cookies := helpers.NewCookie("jwt_session", "/api", "", true)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/me", Auth(auth, cookies), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxUIDKey))
	})
	r.GET("/admin", Auth(auth, cookies), RequireRole(entity.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/public", OptionalAuth(auth, cookies), func(c *gin.Context) {
		if u := CurrentUser(c); u != nil {
			c.String(http.StatusOK, u.UID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	return r, auth, cookies
}

func tokenFor(t *testing.T, auth *application.AuthService, uid, pw string) string {
	t.Helper()
	_, tok, err := auth.Authenticate(context.Background(), uid, pw)
	require.NoError(t, err)
	return tok.Value
}

func TestAuth_CookieAndBearer(t *testing.T) {
	t.Parallel()
	r, auth, _ := newAuthEngine(t)
	tok := tokenFor(t, auth, "alice", "pw1")

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "jwt_session", Value: tok})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", w.Body.String())
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth_Rejects(t *testing.T) {
	t.Parallel()
	r, _, _ := newAuthEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"missing session token"`)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "jwt_session", Value: "garbage"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid session token")
}

func TestRequireRole(t *testing.T) {
	t.Parallel()
	r, auth, _ := newAuthEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "jwt_session", Value: tokenFor(t, auth, "alice", "pw1")})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: "jwt_session", Value: tokenFor(t, auth, "root", "pw2")})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOptionalAuth(t *testing.T) {
	t.Parallel()
	r, auth, _ := newAuthEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public", nil))
	assert.Equal(t, "anonymous", w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.AddCookie(&http.Cookie{Name: "jwt_session", Value: tokenFor(t, auth, "alice", "pw1")})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "alice", w.Body.String())
}

// downUsers fails every lookup the way an unreachable database would.
type downUsers struct{ repository.UserRepository }

func (downUsers) GetByUID(context.Context, string) (*entity.User, error) {
	return nil, errors.New("connection refused")
}

func TestAuth_StoreFailureIsInternalError(t *testing.T) {
	t.Parallel()
	jwt := helpers.NewJWTManager("secret", time.Hour)
	auth := application.NewAuthService(downUsers{}, jwt, helpers.NewDiscardLogger(), nil)
	cookies := helpers.NewCookie("jwt_session", "/api", "", true)
	tok, _, err := jwt.Generate("alice")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", Auth(auth, cookies), func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/public", OptionalAuth(auth, cookies), func(c *gin.Context) { c.String(http.StatusOK, "anonymous") })

	for _, path := range []string{"/me", "/public"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.AddCookie(&http.Cookie{Name: "jwt_session", Value: tok})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusInternalServerError, w.Code, path)
		assert.Contains(t, w.Body.String(), "internal error", path)
	}

	// a bad token is still an auth failure, not a store failure
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "jwt_session", Value: "garbage"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
