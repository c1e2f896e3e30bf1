package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"academy-backend/internal/config"
	"academy-backend/internal/service"
	"academy-backend/pkg/logger"
)

// LearnerMiddleware resolves who is watching. A valid token wins; otherwise
// the caller is a guest identified by a cookie that is issued on first visit.
// Invalid tokens degrade to guest access instead of failing the request.
func LearnerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		learnerID := ""
		if token, err := extractToken(c); err == nil {
			if id, err := parseToken(token, cfg.JWTSecret); err == nil {
				learnerID = id.LearnerID
				c.Set(RoleKey, id.Role)
			}
		}

		if learnerID == "" {
			guestID := guestFromCookie(c, cfg.GuestCookieName)
			if guestID == "" {
				guestID = uuid.NewString()
				c.SetSameSite(http.SameSiteLaxMode)
				c.SetCookie(cfg.GuestCookieName, guestID, int(cfg.GuestCookieTTL.Seconds()), "/", "", cfg.IsProduction(), true)
			}
			learnerID = service.GuestPrefix + guestID
		}

		c.Set(LearnerIDKey, learnerID)
		ctx := logger.ContextWithFields(c.Request.Context(), map[string]interface{}{"learner_id": learnerID})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func guestFromCookie(c *gin.Context, name string) string {
	value, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	value = strings.TrimSpace(value)
	if _, err := uuid.Parse(value); err != nil {
		return ""
	}
	return value
}
