// README: Auth middleware: verifies a bearer token or session cookie and records the caller.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"carpool/internal/infra"
	"carpool/internal/modules/profile"
	"carpool/internal/types"
)

const callerKey = "carpool.caller"

// UserEnsurer creates the caller's user row on first sight.
type UserEnsurer interface {
	Ensure(ctx context.Context, id profile.Identity) error
}

// Auth accepts "Authorization: Bearer <token>" or, failing that, the session
// cookie. users may be nil.
func Auth(verifier infra.TokenVerifier, cookieName string, users UserEnsurer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := extractToken(c, cookieName)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		token, err := verifier.VerifyToken(c.Request.Context(), raw)
		if err != nil || token == nil || token.UID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		if users != nil {
			err := users.Ensure(c.Request.Context(), profile.Identity{
				UID:     types.ID(token.UID),
				Email:   token.Email,
				Name:    token.Name,
				Picture: token.Picture,
			})
			if err != nil {
				_ = c.Error(err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
				return
			}
		}
		c.Set(callerKey, token)
		c.Next()
	}
}

func extractToken(c *gin.Context, cookieName string) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		raw, found := strings.CutPrefix(header, "Bearer ")
		raw = strings.TrimSpace(raw)
		return raw, found && raw != ""
	}
	if cookieName == "" {
		return "", false
	}
	raw, err := c.Cookie(cookieName)
	if err != nil || raw == "" {
		return "", false
	}
	return raw, true
}

// Caller returns the verified token, or nil outside Auth.
func Caller(c *gin.Context) *infra.AuthToken {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil
	}
	token, _ := v.(*infra.AuthToken)
	return token
}

// CallerUID returns the authenticated user id, or "" outside Auth.
func CallerUID(c *gin.Context) types.ID {
	if token := Caller(c); token != nil {
		return types.ID(token.UID)
	}
	return ""
}
