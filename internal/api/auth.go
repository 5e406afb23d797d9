package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const accountContextKey = "AccountID"

// AccountClaims are the JWT claims the control surface accepts. Accounts are
// provisioned by the front end; this service only verifies tokens.
type AccountClaims struct {
	AccountID string `json:"acc"`
	jwt.RegisteredClaims
}

func parseToken(tokenStr, secret string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccountClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*AccountClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token claims")
	}
	if claims.AccountID != "" {
		return claims.AccountID, nil
	}
	return claims.Subject, nil
}

// AuthMiddleware enforces bearer-token auth for protected routes.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":  "MISSING_TOKEN",
				"error": "missing Authorization header",
			})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":  "INVALID_AUTH_HEADER",
				"error": "invalid Authorization header",
			})
			return
		}

		accountID, err := parseToken(parts[1], secret)
		if err != nil || accountID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":  "INVALID_TOKEN",
				"error": "invalid or expired token",
			})
			return
		}

		c.Set(accountContextKey, accountID)
		c.Next()
	}
}

// CurrentAccountID returns the authenticated account ID from context.
func CurrentAccountID(c *gin.Context) string {
	if v, ok := c.Get(accountContextKey); ok {
		if id, okCast := v.(string); okCast {
			return id
		}
	}
	return ""
}
