package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/storage"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func liveToken(t *testing.T) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": 7,
		"exp": testNow.Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)
	return signed
}

type backend struct {
	server    *httptest.Server
	cartCalls atomic.Int32
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /carts/user/7", func(w http.ResponseWriter, r *http.Request) {
		b.cartCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":3,"userId":7,"totalAmount":"40"}`))
	})
	mux.HandleFunc("GET /cart-items/cart/3", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":10,"cartId":3,"productId":1,"quantity":2,"unitPrice":"20","product":{"id":1,"name":"Veste","price":"25","stock":3}}]`))
	})
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})
	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func newRegistry(t *testing.T, mem *storage.Memory, now *time.Time) (*Registry, *backend) {
	t.Helper()
	b := newBackend(t)
	gw, err := gateway.New(gateway.Options{BaseURL: b.server.URL})
	require.NoError(t, err)
	cat, err := catalog.NewService(catalog.ServiceParams{Products: gw.As(nil)})
	require.NoError(t, err)
	reg, err := NewRegistry(RegistryParams{
		Storage: mem,
		Gateway: gw,
		Catalog: cat,
		IdleTTL: 10 * time.Minute,
		Now:     func() time.Time { return *now },
	})
	require.NoError(t, err)
	t.Cleanup(reg.Close)
	return reg, b
}

func signIn(t *testing.T, mem *storage.Memory, clientID string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, mem.Set(ctx, clientID, auth.KeyToken, liveToken(t)))
	require.NoError(t, mem.Set(ctx, clientID, auth.KeyUser, `{"id":7,"email":"u@shop.test","role":"user"}`))
}

func TestClientIsBuiltOnceAndReconcilesStoredSession(t *testing.T) {
	now := testNow
	mem := storage.NewMemory()
	signIn(t, mem, "browser-1")
	reg, b := newRegistry(t, mem, &now)

	ctx := context.Background()
	client, err := reg.Client(ctx, "browser-1")
	require.NoError(t, err)
	again, err := reg.Client(ctx, "browser-1")
	require.NoError(t, err)
	assert.Same(t, client, again)
	assert.Equal(t, 1, reg.Len())

	state := client.Cart.State()
	require.Len(t, state.Items, 1)
	assert.Equal(t, 2, state.Items[0].Quantity)
	assert.Equal(t, "40", state.Total.String())
	assert.Equal(t, int32(1), b.cartCalls.Load())
}

func TestStorageChangesFromAnotherTabUpdateTheClient(t *testing.T) {
	now := testNow
	mem := storage.NewMemory()
	reg, _ := newRegistry(t, mem, &now)

	ctx := context.Background()
	client, err := reg.Client(ctx, "browser-2")
	require.NoError(t, err)
	assert.False(t, client.Auth.IsAuthenticated(ctx))
	assert.True(t, client.Cart.State().IsEmpty())

	signIn(t, mem, "browser-2")
	assert.True(t, client.Auth.IsAuthenticated(ctx))
	assert.Len(t, client.Cart.State().Items, 1)

	require.NoError(t, mem.Remove(ctx, "browser-2", auth.KeyToken))
	assert.False(t, client.Auth.IsAuthenticated(ctx))
	assert.True(t, client.Cart.State().IsEmpty())
}

func TestOtherClientsAreNotAffected(t *testing.T) {
	now := testNow
	mem := storage.NewMemory()
	reg, _ := newRegistry(t, mem, &now)

	ctx := context.Background()
	other, err := reg.Client(ctx, "browser-3")
	require.NoError(t, err)

	signIn(t, mem, "browser-4")
	assert.False(t, other.Auth.IsAuthenticated(ctx))
	assert.True(t, other.Cart.State().IsEmpty())
}

func TestSweepEvictsIdleClients(t *testing.T) {
	now := testNow
	mem := storage.NewMemory()
	reg, _ := newRegistry(t, mem, &now)

	ctx := context.Background()
	stale, err := reg.Client(ctx, "idle")
	require.NoError(t, err)
	now = now.Add(6 * time.Minute)
	_, err = reg.Client(ctx, "busy")
	require.NoError(t, err)

	now = now.Add(5 * time.Minute)
	assert.Equal(t, 1, reg.Sweep())
	assert.Equal(t, 1, reg.Len())

	// evicted clients no longer observe their storage
	signIn(t, mem, "idle")
	assert.True(t, stale.Cart.State().IsEmpty())

	fresh, err := reg.Client(ctx, "idle")
	require.NoError(t, err)
	assert.NotSame(t, stale, fresh)
	assert.True(t, fresh.Auth.IsAuthenticated(ctx), "durable storage survives eviction")
}

func TestClientRequiresID(t *testing.T) {
	now := testNow
	reg, _ := newRegistry(t, storage.NewMemory(), &now)
	_, err := reg.Client(context.Background(), "")
	assert.ErrorIs(t, err, storage.ErrNamespaceRequired)
}

func TestCloseDropsClientsAndRunStopsWithContext(t *testing.T) {
	now := testNow
	reg, _ := newRegistry(t, storage.NewMemory(), &now)

	ctx := context.Background()
	_, err := reg.Client(ctx, "a")
	require.NoError(t, err)
	_, err = reg.Client(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, reg.Ping(ctx))

	reg.Close()
	assert.Equal(t, 0, reg.Len())

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		reg.Run(runCtx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
