package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"rideshare/internal/auth"
	"rideshare/internal/service"
)

const (
	claimsKey = "auth.claims"
	tokenKey  = "auth.token"

	msgNotAuthenticated = "You are not authenticated!"
	msgTokenInvalid     = "Token is not valid!"
	msgNotAuthorized    = "You are not authorized!"
)

// Authenticator validates an access token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

// Auth requires a valid token from the cookie or an Authorization bearer header.
func Auth(authenticator Authenticator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c, cookieName)
		if token == "" {
			abort(c, http.StatusUnauthorized, msgNotAuthenticated)
			return
		}

		claims, err := authenticator.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrInvalidToken) {
				abort(c, http.StatusForbidden, msgTokenInvalid)
				return
			}
			log.Printf("authenticate: %v", err)
			abort(c, http.StatusInternalServerError, "Something went wrong")
			return
		}

		c.Set(claimsKey, claims)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// RequireSelfOrAdmin allows the request when the path parameter equals the caller's ID
// or the caller is an admin. Must run after Auth.
func RequireSelfOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			abort(c, http.StatusUnauthorized, msgNotAuthenticated)
			return
		}
		if claims.UserID != c.Param(param) && !claims.IsAdmin {
			abort(c, http.StatusForbidden, msgNotAuthorized)
			return
		}
		c.Next()
	}
}

// RequireAdmin allows only admins. Must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			abort(c, http.StatusUnauthorized, msgNotAuthenticated)
			return
		}
		if !claims.IsAdmin {
			abort(c, http.StatusForbidden, msgNotAuthorized)
			return
		}
		c.Next()
	}
}

// Claims returns the authenticated caller's claims.
func Claims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok && claims != nil
}

func extractToken(c *gin.Context, cookieName string) string {
	if header := c.GetHeader("Authorization"); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(cookieName); err == nil {
		return cookie
	}
	return ""
}

func abort(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, gin.H{"success": false, "error": msg})
}
