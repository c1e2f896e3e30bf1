package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"academy-backend/internal/authorization"
)

const (
	authTokenCookieName = "auth_token"

	// LearnerIDKey holds the resolved learner id in the gin context.
	LearnerIDKey = "learner_id"
	RoleKey      = "role"
)

var (
	errMissingCredentials = errors.New("authorization credentials required")
	errInvalidHeader      = errors.New("invalid authorization header format")
	errInvalidToken       = errors.New("invalid or expired token")
	errInvalidClaims      = errors.New("invalid token claims")
)

type identity struct {
	LearnerID string
	Role      authorization.UserRole
}

// AuthMiddleware requires a valid bearer token or auth cookie.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := authenticate(c, jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		c.Set(LearnerIDKey, id.LearnerID)
		c.Set(RoleKey, id.Role)
		c.Next()
	}
}

// RequirePermission rejects callers whose role lacks the permission. It must
// run after AuthMiddleware.
func RequirePermission(permission authorization.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, exists := c.Get(RoleKey)
		role, ok := authorization.ParseUserRole(value)
		if !exists || !ok || !authorization.RoleHasPermission(role, permission) {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func authenticate(c *gin.Context, jwtSecret string) (*identity, error) {
	tokenString, err := extractToken(c)
	if err != nil {
		return nil, err
	}
	return parseToken(tokenString, jwtSecret)
}

func extractToken(c *gin.Context) (string, error) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader != "" {
		bearerToken := strings.SplitN(authHeader, " ", 2)
		if len(bearerToken) == 2 && strings.EqualFold(bearerToken[0], "Bearer") {
			if token := strings.TrimSpace(bearerToken[1]); token != "" {
				return token, nil
			}
		}
		if cookieToken, err := c.Cookie(authTokenCookieName); err == nil && strings.TrimSpace(cookieToken) != "" {
			return cookieToken, nil
		}
		return "", errInvalidHeader
	}

	if cookieToken, err := c.Cookie(authTokenCookieName); err == nil && strings.TrimSpace(cookieToken) != "" {
		return cookieToken, nil
	}
	return "", errMissingCredentials
}

func parseToken(tokenString, jwtSecret string) (*identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidClaims
	}

	learnerID := claimString(claims["user_id"])
	if learnerID == "" {
		learnerID = claimString(claims["sub"])
	}
	if learnerID == "" {
		return nil, errInvalidClaims
	}

	role, ok := authorization.ParseUserRole(claims["role"])
	if !ok {
		role = authorization.RoleLearner
	}

	return &identity{LearnerID: learnerID, Role: role}, nil
}

// claimString normalises numeric and string ids from token claims.
func claimString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
