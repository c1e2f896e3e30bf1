package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

var defaultCSPDirectives = [][2]string{
	{"default-src", "'none'"},
	{"img-src", "'self' data: blob:"},
	{"media-src", "'self' data: blob:"},
	{"connect-src", "'self'"},
	{"frame-ancestors", "'none'"},
	{"base-uri", "'none'"},
	{"object-src", "'none'"},
}

// buildContentSecurityPolicy renders the API policy. Extra media and connect
// origins are appended to their directives.
func buildContentSecurityPolicy(mediaOrigins, connectOrigins []string) string {
	parts := make([]string, 0, len(defaultCSPDirectives))
	for _, directive := range defaultCSPDirectives {
		value := directive[1]
		switch directive[0] {
		case "media-src":
			value = appendOrigins(value, mediaOrigins)
		case "connect-src":
			value = appendOrigins(value, connectOrigins)
		}
		parts = append(parts, directive[0]+" "+value)
	}
	return strings.Join(parts, "; ")
}

func appendOrigins(value string, origins []string) string {
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" || origin == "*" {
			continue
		}
		value += " " + origin
	}
	return value
}

func SecurityHeadersMiddleware(mediaOrigins ...string) gin.HandlerFunc {
	policy := buildContentSecurityPolicy(mediaOrigins, nil)

	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-DNS-Prefetch-Control", "off")
		c.Header("X-Permitted-Cross-Domain-Policies", "none")
		c.Header("Cross-Origin-Resource-Policy", "same-site")
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Header("Content-Security-Policy", policy)
		c.Header("Referrer-Policy", "no-referrer")
		c.Next()
	}
}
