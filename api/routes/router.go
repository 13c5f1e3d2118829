package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront/api/controllers"
	"github.com/angelmondragon/storefront/api/middleware"
	"github.com/angelmondragon/storefront/internal/admin"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/logger"
)

type clientRegistry interface {
	Client(ctx context.Context, id string) (*session.Client, error)
	Ping(ctx context.Context) error
}

// Params bundles everything the router wires.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	Registry clientRegistry
	Catalog  *catalog.Service
	Images   admin.ImagePolicy
	Renderer controllers.Renderer
	Metrics  prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	cfg, logg := p.Config, p.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Registry))
	})
	if p.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Metrics, promhttp.HandlerOpts{}))
	}

	clientCookie := middleware.ClientCookie{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.CookieSecure,
		MaxAge: cfg.Session.StorageTTL,
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Client(clientCookie, p.Registry, logg))

		r.Route("/api", func(r chi.Router) {
			r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
			r.Get("/cart", controllers.CartState(logg))
			r.Get("/session", controllers.SessionState(logg))
		})

		page := controllers.Page(p.Catalog, p.Images, p.Renderer, logg)
		r.Get("/", page)
		r.Get("/login", page)
		r.Get("/register", page)
		r.Get("/cart", page)
		r.Get("/admin", page)
		r.NotFound(page)

		r.Post("/login", controllers.AuthLogin(p.Renderer, logg))
		r.Post("/register", controllers.AuthRegister(p.Renderer, logg))
		r.Post("/logout", controllers.AuthLogout(logg))

		r.Post("/cart/items", controllers.CartAdd(p.Catalog, p.Renderer, logg))
		r.Post("/cart/items/{productId}/quantity", controllers.CartUpdateQuantity(p.Renderer, logg))
		r.Post("/cart/items/{productId}/remove", controllers.CartRemove(p.Renderer, logg))
		r.Post("/cart/clear", controllers.CartClear(p.Renderer, logg))
		r.Post("/cart/checkout", controllers.CartCheckout(p.Renderer, logg))

		r.Post("/admin/logout", controllers.AdminLogout(logg))
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logg))
			r.Post("/admin/products", controllers.AdminSaveProduct(p.Images, p.Renderer, logg))
			r.Post("/admin/products/{productId}", controllers.AdminSaveProduct(p.Images, p.Renderer, logg))
			r.Post("/admin/products/{productId}/delete", controllers.AdminDeleteProduct(p.Images, p.Renderer, logg))
		})
	})

	return r
}
