// README: HS256 session-cookie verifier and signer for the jwt auth mode.
package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const sessionTTL = 7 * 24 * time.Hour

// SessionClaims is the payload of a carpool session token.
type SessionClaims struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	jwt.RegisteredClaims
}

type JWTVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), now: time.Now}
}

// Sign issues a session token valid for seven days.
func (v *JWTVerifier) Sign(userID, email, displayName string) (string, error) {
	now := v.now()
	claims := SessionClaims{
		UserID:      userID,
		Email:       email,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func (v *JWTVerifier) VerifyToken(_ context.Context, raw string) (*AuthToken, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	uid := claims.UserID
	if uid == "" {
		uid = claims.Subject
	}
	if uid == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return &AuthToken{
		UID:   uid,
		Email: claims.Email,
		Name:  claims.DisplayName,
	}, nil
}
