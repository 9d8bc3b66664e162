package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// RealIP sets the client IP into the Gin context (key: "real_ip").
// Forwarding headers are honored only when trustForwarded is set, i.e. behind
// a proxy that overwrites them. Otherwise the socket address is used.
// Priority: CF-Connecting-IP, left-most X-Forwarded-For, c.ClientIP().
func RealIP(trustForwarded bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("real_ip", clientIP(c, trustForwarded))
		c.Next()
	}
}

func clientIP(c *gin.Context, trustForwarded bool) string {
	if trustForwarded {
		if cf := strings.TrimSpace(c.GetHeader("CF-Connecting-IP")); cf != "" {
			if ip := net.ParseIP(cf); ip != nil {
				return ip.String()
			}
		}
		if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
				return ip.String()
			}
		}
	}
	return c.ClientIP()
}
