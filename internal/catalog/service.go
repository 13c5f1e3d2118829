package catalog

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

const unavailableMessage = "unable to load products, check that the store backend is running and reachable"

type ViewState string

const (
	ViewReady        ViewState = "ready"
	ViewNoResults    ViewState = "no_results"
	ViewEmptyCatalog ViewState = "empty_catalog"
	ViewUnavailable  ViewState = "unavailable"
)

// Card is one rendered product.
type Card struct {
	Product       types.Product `json:"product"`
	CategoryLabel string        `json:"categoryLabel,omitempty"`
	CanAddToCart  bool          `json:"canAddToCart"`
}

// View is everything the product list renders. Criteria echoes the active
// filters for the no-results state.
type View struct {
	State       ViewState `json:"state"`
	Criteria    Criteria  `json:"criteria"`
	Cards       []Card    `json:"cards"`
	CatalogSize int       `json:"catalogSize"`
	Message     string    `json:"message,omitempty"`
}

func (v View) Filtered() bool {
	return v.Criteria.Active()
}

type productLister interface {
	ListProducts(ctx context.Context, q gateway.ProductQuery) ([]types.Product, error)
}

// ServiceParams bundles the dependencies required to build a catalog service.
type ServiceParams struct {
	Products productLister
	Cache    SnapshotCache
	Logger   *logger.Logger
}

// Service is shared by every client; the snapshot is public data.
type Service struct {
	products productLister
	cache    SnapshotCache
	logg     *logger.Logger
	flight   singleflight.Group

	// generation counts invalidations; a fetch started under an older
	// generation must not be stored.
	mu         sync.Mutex
	generation uint64
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Products == nil {
		return nil, fmt.Errorf("product lister is required")
	}
	cache := params.Cache
	if cache == nil {
		cache = NewMemorySnapshots(0, nil)
	}
	return &Service{products: params.Products, cache: cache, logg: params.Logger}, nil
}

// Load builds the product list view for c.
func (s *Service) Load(ctx context.Context, c Criteria) View {
	c = c.Normalized()
	all, err := s.Products(ctx)
	if err != nil {
		s.log(ctx, "catalog.load_failed", err)
		return View{State: ViewUnavailable, Criteria: c, Cards: []Card{}, Message: unavailableMessage}
	}

	view := View{Criteria: c, CatalogSize: len(all)}
	matched := Filter(all, c)
	view.Cards = make([]Card, 0, len(matched))
	for _, p := range matched {
		view.Cards = append(view.Cards, newCard(p))
	}

	switch {
	case len(all) == 0:
		view.State = ViewEmptyCatalog
	case len(matched) == 0:
		view.State = ViewNoResults
	default:
		view.State = ViewReady
	}
	return view
}

// Products returns the full catalog, from the snapshot when it is fresh.
// Concurrent misses share one backend fetch.
func (s *Service) Products(ctx context.Context) ([]types.Product, error) {
	if cached, ok, err := s.cache.Load(ctx); err != nil {
		s.log(ctx, "catalog.snapshot_read_failed", err)
	} else if ok {
		return cached, nil
	}

	v, err, _ := s.flight.Do("products", func() (any, error) {
		gen := s.currentGeneration()
		fetched, err := s.products.ListProducts(ctx, gateway.ProductQuery{})
		if err != nil {
			return nil, err
		}
		if fetched == nil {
			fetched = []types.Product{}
		}
		s.storeSnapshot(ctx, gen, fetched)
		return fetched, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]types.Product(nil), v.([]types.Product)...), nil
}

// Invalidate drops the snapshot so the next load refetches. A fetch already
// in flight still answers its callers but no longer refills the snapshot.
func (s *Service) Invalidate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.flight.Forget("products")
	if err := s.cache.Drop(ctx); err != nil {
		s.log(ctx, "catalog.snapshot_drop_failed", err)
	}
}

func (s *Service) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Service) storeSnapshot(ctx context.Context, gen uint64, products []types.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.log(ctx, "catalog.snapshot_discarded", fmt.Errorf("invalidated during fetch"))
		return
	}
	if err := s.cache.Store(ctx, products); err != nil {
		s.log(ctx, "catalog.snapshot_write_failed", err)
	}
}

// Find returns one product of the current catalog.
func (s *Service) Find(ctx context.Context, id int64) (*types.Product, error) {
	all, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

func newCard(p types.Product) Card {
	card := Card{Product: p, CanAddToCart: p.InStock()}
	if p.CategoryID != "" {
		card.CategoryLabel = enums.CategorySlug(p.CategoryID).Label()
	}
	return card
}

func (s *Service) log(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}
