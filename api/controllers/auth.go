package controllers

import (
	"net/http"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

// AuthLogin signs the client in. Admins land on the console, everyone else on
// their cart.
func AuthLogin(renderer Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, ok := requireClient(w, r, logg)
		if !ok {
			return
		}
		ctx := r.Context()

		var creds types.Credentials
		err := validators.DecodeForm(r, &creds)
		if err == nil {
			var user *types.User
			user, err = client.Auth.Login(ctx, creds)
			if err == nil {
				responses.Redirect(w, r, client.Nav.AfterLogin(user))
				return
			}
		}

		responses.LogError(ctx, logg, err)
		data := withError(layout(ctx, client, w, enums.PageLogin, loginContent(creds)), err)
		render(w, r, renderer, logg, responses.StatusFor(err), enums.PageLogin, data)
	}
}

func AuthRegister(renderer Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, ok := requireClient(w, r, logg)
		if !ok {
			return
		}
		ctx := r.Context()

		var form auth.RegisterForm
		err := validators.DecodeForm(r, &form)
		if err == nil {
			if _, err = client.Auth.Register(ctx, form); err == nil {
				responses.Redirect(w, r, client.Nav.AfterRegister())
				return
			}
		}

		responses.LogError(ctx, logg, err)
		data := withError(layout(ctx, client, w, enums.PageRegister, registerContent(form)), err)
		render(w, r, renderer, logg, responses.StatusFor(err), enums.PageRegister, data)
	}
}

// AuthLogout clears the session and returns to the shop.
func AuthLogout(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, ok := requireClient(w, r, logg)
		if !ok {
			return
		}
		if err := client.Auth.Logout(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.Redirect(w, r, client.Nav.Navigate(enums.PageHome))
	}
}

func AdminLogout(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, ok := requireClient(w, r, logg)
		if !ok {
			return
		}
		if err := client.Auth.Logout(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.Redirect(w, r, client.Nav.AfterAdminLogout())
	}
}
