package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var unverifiedParser = jwt.NewParser()

// ParseUnverified decodes the token payload without checking its signature.
// The backend is the only party able to verify a token; the storefront reads
// the claims to know when a session has lapsed.
func ParseUnverified(tokenString string) (*SessionClaims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, fmt.Errorf("token is empty")
	}
	raw := jwt.MapClaims{}
	if _, _, err := unverifiedParser.ParseUnverified(tokenString, raw); err != nil {
		return nil, fmt.Errorf("decode token: %w", err)
	}
	return claimsFromMap(raw)
}

// ExpiresAt returns the token's exp claim. ok is false for malformed tokens
// and tokens without an expiry.
func ExpiresAt(tokenString string) (time.Time, bool) {
	claims, err := ParseUnverified(tokenString)
	if err != nil || claims.ExpiresAt.IsZero() {
		return time.Time{}, false
	}
	return claims.ExpiresAt, true
}

// IsLive reports whether the token's expiry is after now.
func IsLive(tokenString string, now time.Time) bool {
	exp, ok := ExpiresAt(tokenString)
	if !ok {
		return false
	}
	return exp.After(now)
}
