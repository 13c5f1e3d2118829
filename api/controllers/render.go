package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/api/views"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

// Renderer writes one storefront page.
type Renderer interface {
	Render(w http.ResponseWriter, status int, page enums.Page, data views.Page) error
}

var pageTitles = map[enums.Page]string{
	enums.PageHome:     "Produits",
	enums.PageLogin:    "Connexion",
	enums.PageRegister: "Inscription",
	enums.PageCart:     "Mon Panier",
	enums.PageAdmin:    "Administration",
}

func requireClient(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (*session.Client, bool) {
	client := middleware.ClientFromContext(r.Context())
	if client == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "client not resolved"))
		return nil, false
	}
	return client, true
}

// layout fills the fields every page shows from the client's live session.
func layout(ctx context.Context, client *session.Client, w http.ResponseWriter, page enums.Page, content any) views.Page {
	return views.Page{
		Title:     pageTitles[page],
		User:      client.Auth.CurrentUser(ctx),
		Admin:     client.Auth.IsAdmin(ctx),
		CartCount: client.Cart.State().Count(),
		RequestID: w.Header().Get("X-Request-Id"),
		Content:   content,
	}
}

func render(w http.ResponseWriter, r *http.Request, renderer Renderer, logg *logger.Logger, status int, page enums.Page, data views.Page) {
	if err := renderer.Render(w, status, page, data); err != nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render page"))
	}
}

// withError puts err on the page: its public message as the alert and, for
// validation errors, the per-field messages.
func withError(data views.Page, err error) views.Page {
	data.Alert = pkgerrors.PublicMessage(err)
	if typed := pkgerrors.As(err); typed != nil {
		if fields, ok := typed.Details().(map[string]string); ok {
			data.Fields = fields
		}
	}
	return data
}

// safeReturn accepts only same-site absolute paths.
func safeReturn(target, fallback string) string {
	target = strings.TrimSpace(target)
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return fallback
	}
	return target
}
