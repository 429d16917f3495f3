package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cnoloyalty/internal/logger"
)

const (
	ContextAccountID = "account_id"
	ContextEmail     = "user_email"

	APIKeyHeader = "X-API-Key"
)

// AuthMiddleware resolves the caller from the bearer token. Handlers must
// take the account id from the context only, never from the request body.
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(strings.TrimSpace(parts[0]), "Bearer") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token is empty"})
			c.Abort()
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), tokenString)
		if err != nil {
			switch {
			case errors.Is(err, ErrTokenExpired):
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			case errors.Is(err, ErrVerifierUnavailable):
				logger.Error("Token verification failed", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to verify token"})
			default:
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or malformed token"})
			}
			c.Abort()
			return
		}

		if identity == nil || identity.AccountID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or malformed token"})
			c.Abort()
			return
		}

		c.Set(ContextAccountID, identity.AccountID)
		c.Set(ContextEmail, identity.Email)

		c.Next()
	}
}

// RequireAPIKey guards staff endpoints with a shared key. An empty key
// disables the route.
func RequireAPIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			c.Abort()
			return
		}

		got := c.GetHeader(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}

func GetAccountID(c *gin.Context) (string, bool) {
	accountID, exists := c.Get(ContextAccountID)
	if !exists {
		return "", false
	}

	id, ok := accountID.(string)
	if !ok || id == "" {
		return "", false
	}

	return id, true
}

func GetEmail(c *gin.Context) string {
	return c.GetString(ContextEmail)
}
