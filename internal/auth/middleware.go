package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
	OperatorKey         = "operator"
	// TokenQueryParam carries the token for EventSource clients, which
	// cannot set headers
	TokenQueryParam = "access_token"
)

// AuthMiddleware creates a Gin middleware for JWT authentication
func AuthMiddleware(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "missing or malformed authorization header",
			})
			return
		}

		claims, err := jwtManager.ValidateToken(tokenString)
		if err != nil {
			message := "invalid token"
			if errors.Is(err, ErrExpiredToken) {
				message = "token has expired"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": message,
			})
			return
		}

		c.Set(OperatorKey, claims.Operator)
		c.Next()
	}
}

// GetOperatorFromContext extracts the operator name from Gin context
func GetOperatorFromContext(c *gin.Context) (string, bool) {
	operator, exists := c.Get(OperatorKey)
	if !exists {
		return "", false
	}
	name, ok := operator.(string)
	return name, ok
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader(AuthorizationHeader)
	if authHeader == "" {
		if token := c.Query(TokenQueryParam); token != "" {
			return token, true
		}
		return "", false
	}

	if !strings.HasPrefix(authHeader, BearerPrefix) {
		return "", false
	}
	return strings.TrimPrefix(authHeader, BearerPrefix), true
}
