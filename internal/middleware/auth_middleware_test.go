package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"academy-backend/internal/authorization"
	"academy-backend/internal/config"
	"academy-backend/internal/service"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newAuthRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"learner": c.GetString(LearnerIDKey)})
	})
	router.GET("/whoami", handlers...)
	return router
}

func TestAuthMiddlewareAcceptsBearerToken(t *testing.T) {
	router := newAuthRouter(AuthMiddleware(testSecret))
	token := signToken(t, jwt.MapClaims{
		"user_id": float64(42),
		"role":    "admin",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != `{"learner":"42"}` {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestAuthMiddlewareRejectsBadCredentials(t *testing.T) {
	router := newAuthRouter(AuthMiddleware(testSecret))
	expired := signToken(t, jwt.MapClaims{"user_id": "ana", "exp": time.Now().Add(-time.Hour).Unix()}, testSecret)
	forged := signToken(t, jwt.MapClaims{"user_id": "ana"}, "other-secret")
	anonymous := signToken(t, jwt.MapClaims{"role": "admin"}, testSecret)

	cases := map[string]string{
		"missing":   "",
		"malformed": "Token abc",
		"expired":   "Bearer " + expired,
		"forged":    "Bearer " + forged,
		"no user":   "Bearer " + anonymous,
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, w.Code)
		}
	}
}

func TestRequirePermission(t *testing.T) {
	router := newAuthRouter(AuthMiddleware(testSecret), RequirePermission(authorization.PermissionGrantAccess))

	for role, want := range map[string]int{"admin": http.StatusOK, "instructor": http.StatusForbidden, "": http.StatusForbidden} {
		token := signToken(t, jwt.MapClaims{"user_id": "u1", "role": role}, testSecret)
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.AddCookie(&http.Cookie{Name: authTokenCookieName, Value: token})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != want {
			t.Fatalf("role %q: expected %d, got %d", role, want, w.Code)
		}
	}
}

func learnerConfig() *config.Config {
	return &config.Config{
		JWTSecret:       testSecret,
		GuestCookieName: "academy_guest",
		GuestCookieTTL:  time.Hour,
	}
}

func TestLearnerMiddlewareIssuesGuestCookie(t *testing.T) {
	router := newAuthRouter(LearnerMiddleware(learnerConfig()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "academy_guest" {
		t.Fatalf("expected guest cookie, got %+v", cookies)
	}
	want := `{"learner":"` + service.GuestPrefix + cookies[0].Value + `"}`
	if w.Body.String() != want {
		t.Fatalf("expected %s, got %s", want, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Body.String() != want {
		t.Fatalf("expected returning guest to keep id, got %s", w.Body.String())
	}
	if len(w.Result().Cookies()) != 0 {
		t.Fatalf("expected no new cookie for returning guest")
	}
}

func TestLearnerMiddlewarePrefersToken(t *testing.T) {
	router := newAuthRouter(LearnerMiddleware(learnerConfig()))
	token := signToken(t, jwt.MapClaims{"user_id": "ana"}, testSecret)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Body.String() != `{"learner":"ana"}` {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestLearnerMiddlewareIgnoresForgedGuestCookie(t *testing.T) {
	router := newAuthRouter(LearnerMiddleware(learnerConfig()))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "academy_guest", Value: "ana"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Body.String() == `{"learner":"guest:ana"}` {
		t.Fatalf("expected non-uuid guest cookie to be replaced")
	}
	if len(w.Result().Cookies()) != 1 {
		t.Fatalf("expected a fresh guest cookie")
	}
}
