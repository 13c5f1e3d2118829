package controllers

import (
	"math"
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

const maxLineQuantity = 999

// CartAdd adds one unit of a catalog product and returns to the listing it
// was posted from. Anonymous shoppers are sent to the login page.
func CartAdd(products catalogView, renderer Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, ok := requireClient(w, r, logg)
		if !ok {
			return
		}
		ctx := r.Context()
		back := safeReturn(r.FormValue("next"), "/")

		if !client.Auth.IsAuthenticated(ctx) {
			responses.Redirect(w, r, client.Nav.Navigate(enums.PageLogin))
			return
		}

		id, err := validators.ParseFormInt(r, "productId", 1, math.MaxInt32)
		if err == nil {
			var product *types.Product
			product, err = lookupProduct(r, client, products, int64(id))
			if err == nil {
				_, err = client.Cart.Add(ctx, *product)
			}
		}
		if err == nil {
			responses.Redirect(w, r, back)
			return
		}
		if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) || pkgerrors.IsCode(err, pkgerrors.CodeSessionExpired) {
			responses.Redirect(w, r, client.Nav.Navigate(enums.PageLogin))
			return
		}

		responses.LogError(ctx, logg, err)
		renderHome(w, r, client, products, renderer, logg, responses.StatusFor(err), err)
	}
}

// lookupProduct prefers the shared catalog snapshot and falls back to the
// backend for products the snapshot does not hold yet.
func lookupProduct(r *http.Request, client *session.Client, products catalogView, id int64) (*types.Product, error) {
	product, err := products.Find(r.Context(), id)
	if err == nil {
		return product, nil
	}
	product, err = client.API.GetProduct(r.Context(), id)
	if gateway.IsNotFound(err) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, err
}

func CartUpdateQuantity(renderer Renderer, logg *logger.Logger) http.HandlerFunc {
	return cartAction(renderer, logg, func(r *http.Request, client *session.Client) error {
		id, err := validators.ParseID(r, "productId")
		if err != nil {
			return err
		}
		quantity, err := validators.ParseFormInt(r, "quantity", 0, maxLineQuantity)
		if err != nil {
			return err
		}
		_, err = client.Cart.UpdateQuantity(r.Context(), id, quantity)
		return err
	})
}

func CartRemove(renderer Renderer, logg *logger.Logger) http.HandlerFunc {
	return cartAction(renderer, logg, func(r *http.Request, client *session.Client) error {
		id, err := validators.ParseID(r, "productId")
		if err != nil {
			return err
		}
		_, err = client.Cart.Remove(r.Context(), id)
		return err
	})
}

func CartClear(renderer Renderer, logg *logger.Logger) http.HandlerFunc {
	return cartAction(renderer, logg, func(r *http.Request, client *session.Client) error {
		_, err := client.Cart.Clear(r.Context())
		return err
	})
}

// CartCheckout places the order and shows its confirmation in place of the
// emptied cart.
func CartCheckout(renderer Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, ok := requireClient(w, r, logg)
		if !ok {
			return
		}
		order, err := client.Cart.Checkout(r.Context())
		if err != nil {
			responses.LogError(r.Context(), logg, err)
			renderCart(w, r, client, renderer, logg, responses.StatusFor(err), nil, err)
			return
		}
		renderCart(w, r, client, renderer, logg, http.StatusOK, order, nil)
	}
}

// cartAction runs a cart mutation and redirects back to the cart, or shows
// the cart with the failure.
func cartAction(renderer Renderer, logg *logger.Logger, apply func(*http.Request, *session.Client) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, ok := requireClient(w, r, logg)
		if !ok {
			return
		}
		if err := apply(r, client); err != nil {
			responses.LogError(r.Context(), logg, err)
			renderCart(w, r, client, renderer, logg, responses.StatusFor(err), nil, err)
			return
		}
		responses.Redirect(w, r, "/cart")
	}
}
