package types

import (
	"strconv"

	"github.com/angelmondragon/storefront/pkg/enums"
)

type User struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"firstName,omitempty"`
	LastName  string     `json:"lastName,omitempty"`
	Role      enums.Role `json:"role"`
}

func (u User) IsAdmin() bool {
	return u.Role == enums.RoleAdmin
}

// DisplayName prefers the first name and falls back to the email.
func (u User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Email
}

func (u User) IDString() string {
	return strconv.FormatInt(u.ID, 10)
}

// AuthResponse is what the backend returns from login and register.
type AuthResponse struct {
	Message     string `json:"message"`
	User        User   `json:"user"`
	AccessToken string `json:"access_token"`
	LegacyToken string `json:"token,omitempty"`
}

// BearerToken returns access_token, falling back to the older token field.
func (a AuthResponse) BearerToken() string {
	if a.AccessToken != "" {
		return a.AccessToken
	}
	return a.LegacyToken
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Registration struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
}
