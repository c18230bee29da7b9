// README: Token verification contract shared by the Firebase and JWT session verifiers.
package infra

import (
	"context"
	"errors"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// AuthToken is the verified identity carried by a bearer token or session cookie.
type AuthToken struct {
	UID     string
	Email   string
	Name    string
	Picture string
	Claims  map[string]any
}

// TokenVerifier verifies a raw token string and returns the caller identity.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, raw string) (*AuthToken, error)
}

func claimString(claims map[string]any, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
