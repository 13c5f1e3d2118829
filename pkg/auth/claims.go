package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/storefront/pkg/enums"
)

// SessionClaims is the payload the store backend puts in its access tokens.
// Only the expiry is relied on; the rest is informational.
type SessionClaims struct {
	Subject   string
	Email     string
	Role      enums.Role
	ExpiresAt time.Time
}

// claimsFromMap tolerates numeric subjects, which the backend emits for user ids.
func claimsFromMap(m jwt.MapClaims) (*SessionClaims, error) {
	out := &SessionClaims{}
	if sub, ok := m["sub"]; ok && sub != nil {
		out.Subject = fmt.Sprint(sub)
	}
	if email, ok := m["email"].(string); ok {
		out.Email = email
	}
	if role, ok := m["role"].(string); ok {
		out.Role = enums.Role(role)
	}
	exp, err := m.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("read exp: %w", err)
	}
	if exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
