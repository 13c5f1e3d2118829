package gateway

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront/pkg/types"
)

// Login exchanges credentials for a token. Any non-success status comes back
// as an API_ERROR carrying the backend's message.
func (c *Client) Login(ctx context.Context, creds types.Credentials) (*types.AuthResponse, error) {
	var out types.AuthResponse
	if err := c.send(ctx, call{
		endpoint: "auth.login",
		method:   http.MethodPost,
		path:     "/auth/login",
		body:     creds,
		out:      &out,
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, reg types.Registration) (*types.AuthResponse, error) {
	var out types.AuthResponse
	if err := c.send(ctx, call{
		endpoint: "auth.register",
		method:   http.MethodPost,
		path:     "/auth/register",
		body:     reg,
		out:      &out,
	}); err != nil {
		return nil, err
	}
	return &out, nil
}
