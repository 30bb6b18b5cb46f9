package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/upgradeforless/UpgradeForLess/utils"
)

// AuthMiddleware verifies a Supabase access token (HS256, signed with the
// project JWT secret) and puts the subject and role on the context.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.LogDebug("AuthMiddleware called")

		if jwtSecret == "" {
			utils.LogError("SUPABASE_JWT_SECRET is not configured")
			utils.AbortWithAppError(c, utils.ConfigurationError("Authentication is not configured", nil))
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.LogWarn("Missing Authorization header")
			utils.Unauthorized(c, "Please login for access")
			c.Abort()
			return
		}

		// Extract token from Bearer header
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			utils.LogWarn("Invalid token: %v", err)
			utils.Unauthorized(c, "Please login for access")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			utils.LogWarn("Invalid token claims")
			utils.Unauthorized(c, "Invalid token claims")
			c.Abort()
			return
		}

		userID, _ := claims["sub"].(string)
		role, _ := claims["role"].(string)
		if userID == "" && role != utils.ServiceRole {
			utils.LogWarn("Token has no subject")
			utils.Unauthorized(c, "Invalid token claims")
			c.Abort()
			return
		}

		c.Set(utils.ContextUserID, userID)
		c.Set(utils.ContextUserRole, role)
		utils.LogDebug("User %s authenticated with role %s", userID, role)
		c.Next()
	}
}

// ServiceRoleMiddleware allows only the Supabase service role through.
// It must run after AuthMiddleware.
func ServiceRoleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(utils.ContextUserRole) != utils.ServiceRole {
			utils.LogWarn("Non-service role %q attempted admin access", c.GetString(utils.ContextUserRole))
			utils.Forbidden(c, "Admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated subject set by AuthMiddleware
func UserID(c *gin.Context) string {
	return c.GetString(utils.ContextUserID)
}
