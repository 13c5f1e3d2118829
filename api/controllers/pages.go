package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/angelmondragon/storefront/api/validators"
	"github.com/angelmondragon/storefront/api/views"
	"github.com/angelmondragon/storefront/internal/admin"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

const maxSearchLength = 100

type catalogView interface {
	Load(ctx context.Context, c catalog.Criteria) catalog.View
	Find(ctx context.Context, id int64) (*types.Product, error)
}

// Page serves every GET page request and unknown paths. The client's route
// controller picks the page; a rewritten address is answered with a redirect.
func Page(products catalogView, images admin.ImagePolicy, renderer Renderer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, ok := requireClient(w, r, logg)
		if !ok {
			return
		}
		ctx := r.Context()

		decision := client.Nav.Visit(r.URL.Path, client.Auth.LegacyAdmin(ctx), client.Auth.IsAdmin(ctx))
		if decision.Redirect {
			http.Redirect(w, r, decision.Path, http.StatusFound)
			return
		}

		switch decision.Page {
		case enums.PageLogin:
			data := layout(ctx, client, w, enums.PageLogin, views.LoginContent{})
			render(w, r, renderer, logg, http.StatusOK, enums.PageLogin, data)
		case enums.PageRegister:
			data := layout(ctx, client, w, enums.PageRegister, views.RegisterContent{})
			render(w, r, renderer, logg, http.StatusOK, enums.PageRegister, data)
		case enums.PageCart:
			renderCart(w, r, client, renderer, logg, http.StatusOK, nil, nil)
		case enums.PageAdmin:
			renderAdminPage(w, r, client, images, renderer, logg)
		default:
			renderHome(w, r, client, products, renderer, logg, http.StatusOK, nil)
		}
	}
}

func homeCriteria(r *http.Request) catalog.Criteria {
	q := r.URL.Query()
	return catalog.Criteria{
		Category: validators.SanitizeString(q.Get("category"), maxSearchLength),
		Search:   validators.SanitizeString(q.Get("search"), maxSearchLength),
	}.Normalized()
}

func renderHome(w http.ResponseWriter, r *http.Request, client *session.Client, products catalogView, renderer Renderer, logg *logger.Logger, status int, err error) {
	ctx := r.Context()
	view := products.Load(ctx, homeCriteria(r))
	data := layout(ctx, client, w, enums.PageHome, views.HomeContent{
		View:     view,
		Taxonomy: enums.Taxonomy(),
		Return:   r.URL.RequestURI(),
	})
	if err != nil {
		data = withError(data, err)
	}
	render(w, r, renderer, logg, status, enums.PageHome, data)
}

func renderCart(w http.ResponseWriter, r *http.Request, client *session.Client, renderer Renderer, logg *logger.Logger, status int, order *types.Order, err error) {
	ctx := r.Context()
	data := layout(ctx, client, w, enums.PageCart, views.CartContent{
		Authenticated: client.Auth.IsAuthenticated(ctx),
		State:         client.Cart.State(),
		Order:         order,
	})
	if order != nil {
		data.Notice = fmt.Sprintf("Commande n°%d enregistrée", order.ID)
	}
	if err != nil {
		data = withError(data, err)
	}
	render(w, r, renderer, logg, status, enums.PageCart, data)
}

func renderAdminPage(w http.ResponseWriter, r *http.Request, client *session.Client, images admin.ImagePolicy, renderer Renderer, logg *logger.Logger) {
	ctx := r.Context()
	content := views.AdminContent{Form: admin.ProductForm{IsActive: true}, MaxImage: imageCeiling(images)}

	overview, err := client.Admin.Overview(ctx)
	content.Overview = overview
	if err == nil {
		if raw := r.URL.Query().Get("edit"); raw != "" {
			id, parseErr := strconv.ParseInt(raw, 10, 64)
			var p *types.Product
			if parseErr == nil {
				p, err = client.Admin.Product(ctx, id)
			}
			if p != nil {
				content.Form = admin.FormFromProduct(*p)
				content.EditingID = p.ID
			}
		}
	}

	data := layout(ctx, client, w, enums.PageAdmin, content)
	status := http.StatusOK
	if err != nil {
		data = withError(data, err)
	}
	render(w, r, renderer, logg, status, enums.PageAdmin, data)
}

func imageCeiling(images admin.ImagePolicy) string {
	return fmt.Sprintf("%d Mo", images.MaxBytes>>20)
}

// loginContent keeps the typed email when the login page is shown again.
func loginContent(creds types.Credentials) views.LoginContent {
	return views.LoginContent{Email: creds.Email}
}

func registerContent(form auth.RegisterForm) views.RegisterContent {
	form.Password, form.ConfirmPassword = "", ""
	return views.RegisterContent{Form: form}
}
