package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// Credentials is the session a credentialed call runs under. The auth store
// implements it; every method re-reads durable storage.
type Credentials interface {
	Token(ctx context.Context) string
	IsAuthenticated(ctx context.Context) bool
	AdminEmail(ctx context.Context) string
	// Expire forces a logout after the backend rejected the token.
	Expire(ctx context.Context)
}

// API is the credential-bound view of the backend.
type API struct {
	client *Client
	creds  Credentials
}

// As binds creds to the client. A nil creds behaves as a logged-out session.
func (c *Client) As(creds Credentials) *API {
	return &API{client: c, creds: creds}
}

func (a *API) do(ctx context.Context, in call) error {
	if a.creds != nil {
		in.token = a.creds.Token(ctx)
	}
	err := a.client.send(ctx, in)
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeAPI && typed.Status() == http.StatusUnauthorized {
		if a.creds != nil {
			a.creds.Expire(ctx)
		}
		return pkgerrors.Wrap(pkgerrors.CodeSessionExpired, err, "session expired, please log in again")
	}
	return err
}

func (a *API) requireAuth(ctx context.Context) error {
	if a.creds == nil || !a.creds.IsAuthenticated(ctx) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "you must be logged in to manage your cart")
	}
	return nil
}

func (a *API) adminEmail(ctx context.Context) (string, error) {
	if a.creds == nil {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "admin session required")
	}
	email := a.creds.AdminEmail(ctx)
	if email == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "admin session required")
	}
	return email, nil
}

// number sends a decimal as a bare JSON number.
func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
