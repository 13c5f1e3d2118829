package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

type cartPayload struct {
	Items []cart.Item     `json:"items"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// CartState returns the client's current cart.
func CartState(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, ok := requireClient(w, r, logg)
		if !ok {
			return
		}
		state := client.Cart.State()
		responses.WriteSuccess(w, cartPayload{Items: state.Items, Total: state.Total, Count: state.Count()})
	}
}

type sessionPayload struct {
	Authenticated bool        `json:"authenticated"`
	Admin         bool        `json:"admin"`
	User          *types.User `json:"user,omitempty"`
	Page          string      `json:"page"`
}

// SessionState reports who the client is signed in as. The token itself is
// never exposed.
func SessionState(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, ok := requireClient(w, r, logg)
		if !ok {
			return
		}
		ctx := r.Context()
		sess := client.Auth.Session(ctx)
		payload := sessionPayload{
			Authenticated: sess.Authenticated,
			Admin:         client.Auth.IsAdmin(ctx),
			Page:          client.Nav.Current().String(),
		}
		if sess.Authenticated {
			payload.User = sess.User
		}
		responses.WriteSuccess(w, payload)
	}
}
