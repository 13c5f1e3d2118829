package middleware

import (
	"context"

	"github.com/angelmondragon/storefront/internal/session"
)

type contextKey string

const (
	ctxClient   contextKey = "client"
	ctxClientID contextKey = "client_id"
)

// ClientFromContext returns the browser client resolved by the Client
// middleware, nil outside of it.
func ClientFromContext(ctx context.Context) *session.Client {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxClient).(*session.Client); ok {
		return v
	}
	return nil
}

func ClientIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxClientID).(string); ok {
		return v
	}
	return ""
}

// WithClient injects the browser client into the context.
func WithClient(ctx context.Context, client *session.Client) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxClient, client)
	if client != nil {
		ctx = context.WithValue(ctx, ctxClientID, client.ID)
	}
	return ctx
}
