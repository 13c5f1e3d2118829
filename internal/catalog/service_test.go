package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/redis"
	"github.com/angelmondragon/storefront/pkg/types"
)

type stubLister struct {
	mu       sync.Mutex
	products []types.Product
	err      error
	calls    int
}

func (s *stubLister) ListProducts(context.Context, gateway.ProductQuery) ([]types.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return append([]types.Product(nil), s.products...), nil
}

func newCatalog(t *testing.T, lister *stubLister, cache SnapshotCache) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Products: lister, Cache: cache})
	require.NoError(t, err)
	return svc
}

func TestLoadStates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := newCatalog(t, &stubLister{products: sampleProducts()}, nil)

	ready := svc.Load(ctx, Criteria{Search: "veste"})
	assert.Equal(t, ViewReady, ready.State)
	assert.Equal(t, 5, ready.CatalogSize)
	assert.Len(t, ready.Cards, 2)

	none := svc.Load(ctx, Criteria{Category: "sandales", Search: " rien "})
	assert.Equal(t, ViewNoResults, none.State)
	assert.Equal(t, Criteria{Category: "sandales", Search: "rien"}, none.Criteria)
	assert.True(t, none.Filtered())

	empty := newCatalog(t, &stubLister{}, nil).Load(ctx, Criteria{Search: "veste"})
	assert.Equal(t, ViewEmptyCatalog, empty.State)

	down := newCatalog(t, &stubLister{err: pkgerrors.New(pkgerrors.CodeDependency, "GET /products")}, nil).Load(ctx, Criteria{})
	assert.Equal(t, ViewUnavailable, down.State)
	assert.NotEmpty(t, down.Message)
	assert.NotNil(t, down.Cards)
}

func TestChemiseVesteScenario(t *testing.T) {
	t.Parallel()

	products := []types.Product{sampleProducts()[0], sampleProducts()[1]}
	svc := newCatalog(t, &stubLister{products: products}, nil)

	view := svc.Load(context.Background(), Criteria{Search: "veste"})
	require.Len(t, view.Cards, 1)
	assert.Equal(t, int64(2), view.Cards[0].Product.ID)
	assert.True(t, view.Cards[0].CanAddToCart)

	all := svc.Load(context.Background(), Criteria{})
	require.Len(t, all.Cards, 2)
	assert.False(t, all.Cards[0].CanAddToCart, "out of stock product must not be addable")
	assert.Equal(t, "Chemises", all.Cards[0].CategoryLabel)
}

func TestSnapshotReusedUntilInvalidated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewMemorySnapshots(30*time.Second, func() time.Time { return now })
	lister := &stubLister{products: sampleProducts()}
	svc := newCatalog(t, lister, cache)

	svc.Load(ctx, Criteria{})
	svc.Load(ctx, Criteria{Search: "veste"})
	assert.Equal(t, 1, lister.calls)

	svc.Invalidate(ctx)
	svc.Load(ctx, Criteria{})
	assert.Equal(t, 2, lister.calls)

	now = now.Add(31 * time.Second)
	svc.Load(ctx, Criteria{})
	assert.Equal(t, 3, lister.calls)
}

func TestZeroTTLAlwaysFetches(t *testing.T) {
	t.Parallel()
	lister := &stubLister{products: sampleProducts()}
	svc := newCatalog(t, lister, nil)

	svc.Load(context.Background(), Criteria{})
	svc.Load(context.Background(), Criteria{})
	assert.Equal(t, 2, lister.calls)
}

func TestFind(t *testing.T) {
	t.Parallel()
	svc := newCatalog(t, &stubLister{products: sampleProducts()}, nil)

	p, err := svc.Find(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Robe d'été", p.Name)

	_, err = svc.Find(context.Background(), 99)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRedisSnapshotsShareAcrossServices(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })

	cache, err := NewRedisSnapshots(client, time.Minute)
	require.NoError(t, err)

	ctx := context.Background()
	first := &stubLister{products: sampleProducts()}
	second := &stubLister{products: sampleProducts()}
	a := newCatalog(t, first, cache)
	b := newCatalog(t, second, cache)

	view := a.Load(ctx, Criteria{Category: "7"})
	require.Equal(t, ViewReady, view.State)
	assert.Equal(t, 5, b.Load(ctx, Criteria{}).CatalogSize)
	assert.Equal(t, 0, second.calls, "second instance should read the shared snapshot")

	b.Invalidate(ctx)
	a.Load(ctx, Criteria{})
	assert.Equal(t, 2, first.calls)

	mr.FastForward(2 * time.Minute)
	b.Load(ctx, Criteria{})
	assert.Equal(t, 1, second.calls)
}

type gatedLister struct {
	started  chan struct{}
	release  chan struct{}
	products []types.Product
}

func (g *gatedLister) ListProducts(context.Context, gateway.ProductQuery) ([]types.Product, error) {
	close(g.started)
	<-g.release
	return append([]types.Product(nil), g.products...), nil
}

func TestInvalidateDuringFetchKeepsSnapshotEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cache := NewMemorySnapshots(time.Minute, nil)
	lister := &gatedLister{started: make(chan struct{}), release: make(chan struct{}), products: sampleProducts()}
	svc, err := NewService(ServiceParams{Products: lister, Cache: cache})
	require.NoError(t, err)

	done := make(chan []types.Product, 1)
	go func() {
		products, err := svc.Products(ctx)
		assert.NoError(t, err)
		done <- products
	}()

	<-lister.started
	svc.Invalidate(ctx)
	close(lister.release)

	select {
	case products := <-done:
		assert.Len(t, products, len(sampleProducts()))
	case <-time.After(2 * time.Second):
		t.Fatalf("fetch did not return")
	}

	_, ok, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "pre-write list must not refill the snapshot")
}
