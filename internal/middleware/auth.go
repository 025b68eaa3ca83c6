// Package middleware holds the Gin middleware: JWT authentication and
// Redis-backed rate limiting.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TokenValidator checks a bearer token and returns the user ID it
// carries. Implemented by service.AuthService.
type TokenValidator interface {
	ValidateToken(token string) (uint, error)
}

// ErrMissingAuthHeader means the request carried no Authorization
// header.
var ErrMissingAuthHeader = errors.New("missing Authorization header")

// Auth returns a middleware that validates the bearer token and stores
// the authenticated user ID under "user_id".
func Auth(validator TokenValidator) gin.HandlerFunc {
	if validator == nil {
		panic("TokenValidator cannot be nil for Auth middleware")
	}

	return func(c *gin.Context) {
		tokenStr, err := extractToken(c)
		if err != nil {
			if errors.Is(err, ErrMissingAuthHeader) {
				logrus.Warn("Auth middleware: missing Authorization header")
				c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Authorization header is required"})
			} else {
				logrus.WithError(err).Warn("Auth middleware: malformed Authorization header")
				c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid token format"})
			}
			c.Abort()
			return
		}

		userID, err := validator.ValidateToken(tokenStr)
		if err != nil {
			logrus.WithError(err).Warn("Auth middleware: invalid token")
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		logrus.WithField("user_id", userID).Debug("Auth middleware: user authenticated via JWT")
		c.Next()
	}
}

func extractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header is not a bearer token")
	}
	return parts[1], nil
}
