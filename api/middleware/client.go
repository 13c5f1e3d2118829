package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/internal/session"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type clientResolver interface {
	Client(ctx context.Context, id string) (*session.Client, error)
}

// ClientCookie configures the cookie that identifies a browser.
type ClientCookie struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

func (c ClientCookie) name() string {
	if c.Name == "" {
		return "sf_client"
	}
	return c.Name
}

// Client resolves the browser's stores from its client cookie, issuing a new
// id on first visit or when the cookie was tampered with.
func Client(cookie ClientCookie, registry clientResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := readClientID(r, cookie.name())
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookie.name(),
					Value:    id,
					Path:     "/",
					MaxAge:   int(cookie.MaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cookie.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithClientID(ctx, id)
			}

			client, err := registry.Client(ctx, id)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve client"))
				return
			}

			if logg != nil {
				if user := client.Auth.CurrentUser(ctx); user != nil {
					ctx = logg.WithUserID(ctx, user.IDString())
				}
			}
			next.ServeHTTP(w, r.WithContext(WithClient(ctx, client)))
		})
	}
}

func readClientID(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	parsed, err := uuid.Parse(c.Value)
	if err != nil {
		return ""
	}
	return parsed.String()
}

// RequireAdmin sends anyone without a live admin session to the login page.
// It only shapes navigation; the backend authorizes every admin write.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ClientFromContext(r.Context())
			if client == nil || !client.Auth.IsAdmin(r.Context()) {
				if logg != nil {
					logg.Warn(r.Context(), "admin.gate.redirect")
				}
				responses.Redirect(w, r, "/login")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
