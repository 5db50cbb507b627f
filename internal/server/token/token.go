// Package token issues and validates the bearer tokens that
// authenticate API requests. Token validity is independent of the
// master password: a valid token with no secret is a locked vault.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every parse, signature and claim failure.
var ErrInvalidToken = errors.New("invalid or expired token")

const (
	issuer   = "keywarden"
	audience = "keywarden-api"
)

// DefaultTTL is the token lifetime used when the config does not set one.
const DefaultTTL = 24 * time.Hour

// Claims carries the authenticated user's ID.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// Issue creates a signed HS256 token for the given user.
func Issue(userID, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: userID,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(secret))
}

// Validate parses and verifies a token string, returning its claims.
func Validate(tokenString, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer), jwt.WithAudience(audience))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
