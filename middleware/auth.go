package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/janpow77/flowinvoice-sub001/config"
	"github.com/janpow77/flowinvoice-sub001/pkg/logger"
)

// Claims are the reviewer claims carried by the session JWT
type Claims struct {
	Username string `json:"username"`
	Tenant   string `json:"tenant"`
	jwt.RegisteredClaims
}

// GenerateToken issues a reviewer JWT
func GenerateToken(username, tenant string, cfg *config.AuthConfig) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(time.Duration(cfg.TokenExpireHours) * time.Hour)

	claims := Claims{
		Username: username,
		Tenant:   tenant,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    "flowaudit-review",
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// AuthMiddleware validates the reviewer JWT and puts username and tenant on
// both the gin context and the request context.
func AuthMiddleware(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("username", claims.Username)
		c.Set("tenant", claims.Tenant)

		ctx := context.WithValue(c.Request.Context(), logger.UsernameKey, claims.Username)
		ctx = context.WithValue(ctx, logger.TenantKey, claims.Tenant)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetUsername gets the username from context
func GetUsername(c *gin.Context) string {
	return c.GetString("username")
}

// GetTenant gets the tenant from context
func GetTenant(c *gin.Context) string {
	return c.GetString("tenant")
}
