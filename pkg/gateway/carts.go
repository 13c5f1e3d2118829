package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/types"
)

func (a *API) CreateCart(ctx context.Context, userID int64) (*types.ServerCart, error) {
	var out *types.ServerCart
	if err := a.do(ctx, call{
		endpoint: "carts.create",
		method:   http.MethodPost,
		path:     "/carts",
		body:     map[string]int64{"userId": userID},
		out:      &out,
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) GetCart(ctx context.Context, id int64) (*types.ServerCart, error) {
	var out *types.ServerCart
	if err := a.do(ctx, call{
		endpoint: "carts.get",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/carts/%d", id),
		out:      &out,
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUserCart returns nil without error when the user has no cart yet
// (404 or an empty body).
func (a *API) GetUserCart(ctx context.Context, userID int64) (*types.ServerCart, error) {
	var out *types.ServerCart
	err := a.do(ctx, call{
		endpoint: "carts.by_user",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/carts/user/%d", userID),
		out:      &out,
	})
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if out != nil && out.ID == 0 {
		return nil, nil
	}
	return out, nil
}

func (a *API) UpdateCartTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	return a.do(ctx, call{
		endpoint: "carts.total",
		method:   http.MethodPut,
		path:     fmt.Sprintf("/carts/%d/total", id),
		body:     map[string]any{"totalAmount": number(total)},
	})
}

// AddCartItem captures unitPrice on the server line.
func (a *API) AddCartItem(ctx context.Context, cartID, productID int64, quantity int, unitPrice decimal.Decimal) (*types.ServerCartItem, error) {
	if err := a.requireAuth(ctx); err != nil {
		return nil, err
	}
	var out *types.ServerCartItem
	if err := a.do(ctx, call{
		endpoint: "cart_items.add",
		method:   http.MethodPost,
		path:     "/cart-items",
		body: map[string]any{
			"cartId":    cartID,
			"productId": productID,
			"quantity":  quantity,
			"unitPrice": number(unitPrice),
		},
		out: &out,
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) ListCartItems(ctx context.Context, cartID int64) ([]types.ServerCartItem, error) {
	if err := a.requireAuth(ctx); err != nil {
		return nil, err
	}
	var out []types.ServerCartItem
	if err := a.do(ctx, call{
		endpoint: "cart_items.list",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/cart-items/cart/%d", cartID),
		out:      &out,
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) UpdateCartItemQuantity(ctx context.Context, itemID int64, quantity int) (*types.ServerCartItem, error) {
	if err := a.requireAuth(ctx); err != nil {
		return nil, err
	}
	var out *types.ServerCartItem
	if err := a.do(ctx, call{
		endpoint: "cart_items.update",
		method:   http.MethodPut,
		path:     fmt.Sprintf("/cart-items/%d", itemID),
		body:     map[string]int{"quantity": quantity},
		out:      &out,
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) RemoveCartItem(ctx context.Context, itemID int64) error {
	if err := a.requireAuth(ctx); err != nil {
		return err
	}
	return a.do(ctx, call{
		endpoint: "cart_items.remove",
		method:   http.MethodDelete,
		path:     fmt.Sprintf("/cart-items/%d", itemID),
	})
}

// CreateOrder converts the user's server cart into an order.
func (a *API) CreateOrder(ctx context.Context) (*types.Order, error) {
	if err := a.requireAuth(ctx); err != nil {
		return nil, err
	}
	var out *types.Order
	if err := a.do(ctx, call{
		endpoint: "orders.create",
		method:   http.MethodPost,
		path:     "/orders",
		out:      &out,
	}); err != nil {
		return nil, err
	}
	return out, nil
}
