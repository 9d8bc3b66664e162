package helpers

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Manager writes the session cookie. The cookie is HttpOnly, Secure and
// SameSite=None so that cross-site frontends can send it.
type Manager struct {
	Name   string
	Path   string
	Domain string
	Secure bool
}

func NewCookie(name, path, domain string, secure bool) *Manager {
	return &Manager{Name: name, Path: path, Domain: domain, Secure: secure}
}

// Set stores the token with a Max-Age derived from its expiry.
func (m *Manager) Set(c *gin.Context, token string, exp time.Time) {
	c.SetSameSite(http.SameSiteNoneMode)
	c.SetCookie(m.Name, token, maxAgeFrom(exp), m.Path, m.Domain, m.Secure, true)
}

// Expire overwrites the cookie with token and Max-Age=0.
func (m *Manager) Expire(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteNoneMode)
	// net/http emits "Max-Age=0" for negative values; zero would omit the attribute.
	c.SetCookie(m.Name, token, -1, m.Path, m.Domain, m.Secure, true)
}

// Token returns the session token from the cookie, falling back to a bearer header.
func (m *Manager) Token(c *gin.Context) string {
	if v, err := c.Cookie(m.Name); err == nil && v != "" {
		return v
	}
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// maxAgeFrom rounds up, since token expiries are truncated to whole seconds.
func maxAgeFrom(exp time.Time) int {
	sec := int(math.Ceil(time.Until(exp).Seconds()))
	if sec < 0 {
		return 0
	}
	return sec
}
