package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"scrap/internal/domain"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newAuthRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	chain := append([]gin.HandlerFunc{NewAuthMiddleware(testSecret).Handler()}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		actor, _ := ActorFrom(c)
		c.JSON(http.StatusOK, gin.H{"user_id": actor.UserID, "role": actor.Role})
	})
	r.GET("/me", chain...)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	valid := jwt.MapClaims{"user_id": "user-1", "role": "CUSTOMER", "exp": time.Now().Add(time.Hour).Unix()}

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, valid), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"no bearer prefix", signToken(t, testSecret, jwt.SigningMethodHS256, valid), http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", jwt.SigningMethodHS256, valid), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": "user-1", "role": "CUSTOMER", "exp": time.Now().Add(-time.Hour).Unix(),
		}), http.StatusUnauthorized},
		{"missing user", "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{"role": "CUSTOMER"}), http.StatusUnauthorized},
		{"system role rejected", "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": "user-1", "role": "SYSTEM",
		}), http.StatusUnauthorized},
		{"unexpected algorithm", "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS512, valid), http.StatusUnauthorized},
	}

	router := newAuthRouter()

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	router := newAuthRouter(RequireRole(domain.RoleAdmin))

	for role, want := range map[string]int{"ADMIN": http.StatusOK, "CUSTOMER": http.StatusForbidden, "COLLECTOR": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": "user-1", "role": role,
		}))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != want {
			t.Errorf("role %s: expected %d, got %d", role, want, w.Code)
		}
	}
}
