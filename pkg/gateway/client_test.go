package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/types"
)

type stubCreds struct {
	token   string
	authed  bool
	email   string
	expired int
}

func (s *stubCreds) Token(context.Context) string         { return s.token }
func (s *stubCreds) IsAuthenticated(context.Context) bool { return s.authed }
func (s *stubCreds) AdminEmail(context.Context) string    { return s.email }
func (s *stubCreds) Expire(context.Context)               { s.expired++; s.token = ""; s.authed = false }

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	client, err := New(Options{BaseURL: srv.URL + "/", RetryMaxTries: 3})
	require.NoError(t, err)
	client.retryInterval = time.Millisecond
	return client, &hits
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestRequestsCarryJSONAndBearerHeaders(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "/products", r.URL.Path)
		assert.Equal(t, "bottes", r.URL.Query().Get("category"))
		assert.Equal(t, "cuir", r.URL.Query().Get("search"))
		writeJSON(w, http.StatusOK, `[{"id":1,"name":"Bottes","price":"89.00","stock":2,"categoryId":"bottes"}]`)
	})

	products, err := client.As(&stubCreds{token: "tok-1"}).ListProducts(context.Background(), ProductQuery{Category: "bottes", Search: " cuir "})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("89")))
}

func TestNoAuthorizationHeaderWithoutToken(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `[]`)
	})
	_, err := client.As(nil).ListCategories(context.Background())
	require.NoError(t, err)
}

func TestUnauthorizedForcesLogout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"Unauthorized"}`)
	})
	creds := &stubCreds{token: "stale", authed: true}

	_, err := client.As(creds).GetCart(context.Background(), 4)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeSessionExpired))
	assert.Equal(t, 1, creds.expired)
}

func TestErrorMessageParsing(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "string", status: http.StatusBadRequest, body: `{"message":"Stock insuffisant"}`, want: "Stock insuffisant"},
		{name: "list", status: http.StatusBadRequest, body: `{"message":["name must be a string","price must be positive"]}`, want: "name must be a string, price must be positive"},
		{name: "fallback", status: http.StatusInternalServerError, body: `oops`, want: "API error: 500 Internal Server Error"},
		{name: "empty message", status: http.StatusNotFound, body: `{"message":""}`, want: "API error: 404 Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})
			_, err := client.As(nil).GetProduct(context.Background(), 1)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeAPI, typed.Code())
			assert.Equal(t, tt.want, typed.Message())
			assert.Equal(t, tt.status, typed.Status())
		})
	}
}

func TestEmptyBodiesDecodeToEmptyResult(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
	}{
		{name: "no content", status: http.StatusNoContent},
		{name: "empty json", status: http.StatusOK, contentType: "application/json"},
		{name: "plain text", status: http.StatusOK, contentType: "text/plain", body: "deleted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if tt.contentType != "" {
					w.Header().Set("Content-Type", tt.contentType)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			product, err := client.As(nil).GetProduct(context.Background(), 9)
			require.NoError(t, err)
			assert.Nil(t, product)
		})
	}
}

func TestCartItemCallsRequireAuthenticationBeforeNetwork(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})
	api := client.As(&stubCreds{})
	ctx := context.Background()

	_, err := api.AddCartItem(ctx, 1, 2, 1, decimal.NewFromInt(5))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	_, err = api.ListCartItems(ctx, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	_, err = api.UpdateCartItemQuantity(ctx, 1, 3)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	err = api.RemoveCartItem(ctx, 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	_, err = api.CreateOrder(ctx)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}

func TestAddCartItemSendsNumericUnitPrice(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(3), body["cartId"])
		assert.Equal(t, float64(12), body["productId"])
		assert.Equal(t, float64(2), body["quantity"])
		assert.Equal(t, 19.9, body["unitPrice"])
		writeJSON(w, http.StatusCreated, `{"id":44,"cartId":3,"productId":12,"quantity":2,"unitPrice":19.9,"totalPrice":39.8}`)
	})
	item, err := client.As(&stubCreds{token: "t", authed: true}).AddCartItem(context.Background(), 3, 12, 2, decimal.RequireFromString("19.90"))
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, int64(44), item.ID)
}

func TestProductWritesNeedAdminEmail(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "admin@shop.test", body["userEmail"])
		if r.Method != http.MethodDelete {
			assert.Equal(t, 25.5, body["price"])
			assert.Equal(t, "sandales", body["categoryId"])
		}
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, `{"id":8,"name":"Sandale","price":25.5,"stock":3}`)
	})
	ctx := context.Background()
	input := types.ProductInput{Name: "Sandale", Description: "Cuir", Price: decimal.RequireFromString("25.5"), Stock: 3, CategoryID: "sandales", IsActive: true}

	_, err := client.As(&stubCreds{authed: true}).CreateProduct(ctx, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	err = client.As(nil).DeleteProduct(ctx, 8)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))

	admin := client.As(&stubCreds{token: "t", authed: true, email: "admin@shop.test"})
	created, err := admin.CreateProduct(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, int64(8), created.ID)
	_, err = admin.UpdateProduct(ctx, 8, input)
	require.NoError(t, err)
	require.NoError(t, admin.DeleteProduct(ctx, 8))
	assert.Equal(t, int32(3), atomic.LoadInt32(hits))
}

func TestGetUserCartTreatsMissingAsNil(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/carts/user/1":
			writeJSON(w, http.StatusNotFound, `{"message":"Cart not found"}`)
		case "/carts/user/2":
			w.WriteHeader(http.StatusOK)
		default:
			writeJSON(w, http.StatusOK, `{"id":5,"userId":3,"totalAmount":"12.00"}`)
		}
	})
	api := client.As(&stubCreds{token: "t", authed: true})
	ctx := context.Background()

	cart, err := api.GetUserCart(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, cart)
	cart, err = api.GetUserCart(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, cart)
	cart, err = api.GetUserCart(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, cart)
	assert.Equal(t, int64(5), cart.ID)
}

func TestLoginSurfacesServerMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		writeJSON(w, http.StatusUnauthorized, `{"message":"Identifiants invalides"}`)
	})
	_, err := client.Login(context.Background(), types.Credentials{Email: "a@b.c", Password: "x"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeAPI, typed.Code())
	assert.Equal(t, "Identifiants invalides", typed.Message())
}

type flakyTransport struct {
	failures int32
	calls    int32
	next     http.RoundTripper
}

func (f *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.failures {
		return nil, errors.New("connection reset by peer")
	}
	return f.next.RoundTrip(r)
}

func TestGetRetriesConnectionFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	}))
	defer srv.Close()

	transport := &flakyTransport{failures: 2, next: http.DefaultTransport}
	client, err := New(Options{BaseURL: srv.URL, RetryMaxTries: 3, HTTPClient: &http.Client{Transport: transport}})
	require.NoError(t, err)
	client.retryInterval = time.Millisecond

	_, err = client.As(nil).ListProducts(context.Background(), ProductQuery{})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&transport.calls))
}

func TestWritesAreNotRetried(t *testing.T) {
	transport := &flakyTransport{failures: 5, next: http.DefaultTransport}
	client, err := New(Options{BaseURL: "http://backend.invalid", RetryMaxTries: 3, HTTPClient: &http.Client{Transport: transport}})
	require.NoError(t, err)
	client.retryInterval = time.Millisecond

	_, err = client.As(&stubCreds{token: "t", authed: true}).CreateCart(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&transport.calls))
	assert.Equal(t, "unable to reach the store backend", pkgerrors.PublicMessage(err))
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestServerMessageOnlyForBackendText(t *testing.T) {
	withMsg := apiError(&response{status: http.StatusConflict, body: []byte(`{"message":"Email déjà utilisé"}`)})
	assert.Equal(t, "Email déjà utilisé", ServerMessage(withMsg))

	fallback := apiError(&response{status: http.StatusBadGateway, body: []byte(`<html>`)})
	assert.Equal(t, "", ServerMessage(fallback))
	assert.Equal(t, "API error: 502 Bad Gateway", fallback.Message())
}
