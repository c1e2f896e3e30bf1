package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"academy-backend/internal/config"
)

const rateLimitManagerKey = "rateLimitManager"

// RateLimitMiddleware limits requests per client IP. The application stores a
// RateLimitManager in the context under "rateLimitManager"; without one the
// middleware is a no-op.
func RateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if shouldBypassRateLimit(c.Request) {
			c.Next()
			return
		}

		manager := managerFromContext(c)
		if manager == nil {
			c.Next()
			return
		}

		limiter := manager.GetVisitor(
			c.ClientIP(),
			cfg.RateLimitRequests,
			cfg.RateLimitWindow,
			cfg.RateLimitBurst,
		)

		if limiter == nil {
			c.Next()
			return
		}

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, please try again later",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// ProgressRateLimitMiddleware throttles watch-progress events per learner.
// It must run after LearnerMiddleware.
func ProgressRateLimitMiddleware(cfg *config.Config) gin.HandlerFunc {
	requestsPerWindow := cfg.ProgressRateLimitRequests
	windowSeconds := cfg.ProgressRateLimitWindow
	if windowSeconds <= 0 {
		windowSeconds = 60
	}

	return func(c *gin.Context) {
		manager := managerFromContext(c)
		if manager == nil {
			c.Next()
			return
		}

		key := c.GetString(LearnerIDKey)
		if key == "" {
			key = c.ClientIP()
		}

		limiter := manager.GetProgressLimiter(key, requestsPerWindow, windowSeconds)
		if limiter == nil {
			c.Next()
			return
		}

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":          "progress rate limit exceeded",
				"retry_after":    windowSeconds,
				"max_requests":   requestsPerWindow,
				"window_seconds": windowSeconds,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func managerFromContext(c *gin.Context) *RateLimitManager {
	value, exists := c.Get(rateLimitManagerKey)
	if !exists {
		return nil
	}
	manager, _ := value.(*RateLimitManager)
	return manager
}

func shouldBypassRateLimit(r *http.Request) bool {
	if r == nil || r.URL == nil {
		return false
	}

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}

	path := r.URL.Path
	if path == "" {
		return false
	}

	switch path {
	case "/health", "/metrics", "/favicon.ico":
		return true
	}

	return strings.HasPrefix(path, "/static/")
}

// WithRateLimitManager exposes the manager to the rate limiting middleware.
func WithRateLimitManager(manager *RateLimitManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if manager != nil {
			c.Set(rateLimitManagerKey, manager)
		}
		c.Next()
	}
}
