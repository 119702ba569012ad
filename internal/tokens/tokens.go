package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidSessionToken is returned for cookies that are malformed, tampered with or expired.
var ErrInvalidSessionToken = errors.New("invalid session token")

// sessionClaims carries the opaque session handle in the cookie value.
type sessionClaims struct {
	Handle string `json:"sid"`
	jwt.RegisteredClaims
}

// SignSessionHandle wraps a session handle in an HS256-signed JWT suitable for a cookie value.
func SignSessionHandle(secret, handle string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("session secret is empty")
	}
	now := time.Now()
	claims := sessionClaims{
		Handle: handle,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}

// ParseSessionHandle validates a cookie value produced by SignSessionHandle and returns the handle.
func ParseSessionHandle(secret, raw string) (string, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	if claims.Handle == "" {
		return "", ErrInvalidSessionToken
	}
	return claims.Handle, nil
}
