// Package session keeps one set of client-side stores per browser: the auth
// store over the client's durable storage, its cart and its page controller.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/internal/admin"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/navigation"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/storage"
)

const defaultIdleTTL = 30 * time.Minute

// Client is everything one browser owns.
type Client struct {
	ID    string
	Auth  *auth.Store
	Cart  *cart.Service
	API   *gateway.API
	Admin *admin.Service
	Nav   *navigation.Controller

	mu       sync.Mutex
	lastSeen time.Time
	stop     func()
}

func (c *Client) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *Client) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// RegistryParams bundles the dependencies required to build a registry.
type RegistryParams struct {
	Storage storage.Backend
	Gateway *gateway.Client
	Catalog *catalog.Service
	IdleTTL time.Duration
	Metrics *metrics.ClientMetrics
	Logger  *logger.Logger
	Now     func() time.Time
}

// Registry builds clients on first use and evicts idle ones. Evicting a
// client drops its in-memory stores only; its durable storage stays.
type Registry struct {
	storage storage.Backend
	gateway *gateway.Client
	catalog *catalog.Service
	idleTTL time.Duration
	metrics *metrics.ClientMetrics
	logg    *logger.Logger
	now     func() time.Time

	mu      sync.Mutex
	clients map[string]*Client
}

func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.Storage == nil {
		return nil, fmt.Errorf("storage backend is required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway client is required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog service is required")
	}
	idle := params.IdleTTL
	if idle <= 0 {
		idle = defaultIdleTTL
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		storage: params.Storage,
		gateway: params.Gateway,
		catalog: params.Catalog,
		idleTTL: idle,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     now,
		clients: make(map[string]*Client),
	}, nil
}

// Client returns the stores of browser id, building them on first use. The
// first build re-derives the identity from storage, which reconciles the
// cart of an already signed-in browser.
func (r *Registry) Client(ctx context.Context, id string) (*Client, error) {
	if id == "" {
		return nil, storage.ErrNamespaceRequired
	}

	r.mu.Lock()
	if existing, ok := r.clients[id]; ok {
		r.mu.Unlock()
		existing.touch(r.now())
		return existing, nil
	}
	client, err := r.build(id)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.clients[id] = client
	r.metrics.SetActive(len(r.clients))
	r.mu.Unlock()

	client.Auth.Refresh(ctx)
	if r.logg != nil {
		r.logg.Debug(r.logg.WithClientID(ctx, id), "session.client_created")
	}
	return client, nil
}

func (r *Registry) build(id string) (*Client, error) {
	local, err := storage.NewLocal(r.storage, id)
	if err != nil {
		return nil, err
	}
	authStore, err := auth.NewStore(auth.StoreParams{
		Storage: local,
		Gateway: r.gateway,
		Logger:  r.logg,
		Now:     r.now,
	})
	if err != nil {
		return nil, err
	}
	api := r.gateway.As(authStore)
	cartService, err := cart.NewService(cart.ServiceParams{
		Store:    cart.NewStore(),
		API:      api,
		Identity: authStore,
		Logger:   r.logg,
	})
	if err != nil {
		return nil, err
	}
	adminService, err := admin.NewService(admin.ServiceParams{
		API:     api,
		Catalog: r.catalog,
		Logger:  r.logg,
	})
	if err != nil {
		return nil, err
	}

	unsubscribe := authStore.OnIdentityChange(cartService.HandleIdentityChange)

	watchCtx, cancel := context.WithCancel(context.Background())
	if r.logg != nil {
		watchCtx = r.logg.WithClientID(watchCtx, id)
	}
	stopWatch, err := local.Watch(watchCtx, func(change storage.Change) {
		if isSessionKey(change.Key) {
			authStore.Refresh(watchCtx)
		}
	})
	if err != nil {
		cancel()
		unsubscribe()
		return nil, fmt.Errorf("watch client storage: %w", err)
	}

	return &Client{
		ID:       id,
		Auth:     authStore,
		Cart:     cartService,
		API:      api,
		Admin:    adminService,
		Nav:      navigation.NewController(),
		lastSeen: r.now(),
		stop: func() {
			stopWatch()
			unsubscribe()
			cancel()
		},
	}, nil
}

func isSessionKey(key string) bool {
	switch key {
	case auth.KeyToken, auth.KeyUser, auth.KeyLegacyAdmin:
		return true
	default:
		return false
	}
}

// Sweep evicts clients idle for longer than the idle TTL and returns how many
// were dropped.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var idle []*Client
	for id, client := range r.clients {
		if client.idleSince().Before(cutoff) {
			idle = append(idle, client)
			delete(r.clients, id)
		}
	}
	r.metrics.SetActive(len(r.clients))
	r.mu.Unlock()

	for _, client := range idle {
		client.stop()
	}
	r.metrics.AddEvicted(len(idle))
	return len(idle)
}

// Run sweeps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	interval := r.idleTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 && r.logg != nil {
				r.logg.Debug(r.logg.WithField(ctx, "evicted", n), "session.sweep")
			}
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Close stops every client subscription.
func (r *Registry) Close() {
	r.mu.Lock()
	clients := r.clients
	r.clients = make(map[string]*Client)
	r.metrics.SetActive(0)
	r.mu.Unlock()

	for _, client := range clients {
		client.stop()
	}
}

// Ping checks the storage backend.
func (r *Registry) Ping(ctx context.Context) error {
	return r.storage.Ping(ctx)
}
