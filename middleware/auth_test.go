package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upgradeforless/UpgradeForLess/utils"
)

const testJWTSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func setupRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", AuthMiddleware(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c), "role": c.GetString(utils.ContextUserRole)})
	})
	router.GET("/admin", AuthMiddleware(secret), ServiceRoleMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestAuthMiddleware(t *testing.T) {
	router := setupRouter(testJWTSecret)
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
	}{
		{name: "valid user token", path: "/me",
			header:     "Bearer " + signToken(t, testJWTSecret, jwt.MapClaims{"sub": "user-1", "role": "authenticated", "exp": exp}),
			wantStatus: http.StatusOK},
		{name: "missing header", path: "/me", wantStatus: http.StatusUnauthorized},
		{name: "wrong secret", path: "/me",
			header:     "Bearer " + signToken(t, "other-secret", jwt.MapClaims{"sub": "user-1", "exp": exp}),
			wantStatus: http.StatusUnauthorized},
		{name: "expired", path: "/me",
			header:     "Bearer " + signToken(t, testJWTSecret, jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(-time.Hour).Unix()}),
			wantStatus: http.StatusUnauthorized},
		{name: "no subject", path: "/me",
			header:     "Bearer " + signToken(t, testJWTSecret, jwt.MapClaims{"role": "authenticated", "exp": exp}),
			wantStatus: http.StatusUnauthorized},
		{name: "admin route with user role", path: "/admin",
			header:     "Bearer " + signToken(t, testJWTSecret, jwt.MapClaims{"sub": "user-1", "role": "authenticated", "exp": exp}),
			wantStatus: http.StatusForbidden},
		{name: "admin route with service role", path: "/admin",
			header:     "Bearer " + signToken(t, testJWTSecret, jwt.MapClaims{"role": utils.ServiceRole, "exp": exp}),
			wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestAuthMiddleware_RejectsNoneAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	setupRouter(testJWTSecret).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_Unconfigured(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	w := httptest.NewRecorder()
	setupRouter("").ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
