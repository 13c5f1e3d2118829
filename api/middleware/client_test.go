package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/session"
	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/angelmondragon/storefront/pkg/types"
)

type noopGateway struct{}

func (noopGateway) Login(context.Context, types.Credentials) (*types.AuthResponse, error) {
	return nil, errors.New("not used")
}

func (noopGateway) Register(context.Context, types.Registration) (*types.AuthResponse, error) {
	return nil, errors.New("not used")
}

type fakeResolver struct {
	mem     *storage.Memory
	clients map[string]*session.Client
	err     error
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{mem: storage.NewMemory(), clients: map[string]*session.Client{}}
}

func (f *fakeResolver) Client(_ context.Context, id string) (*session.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	if c, ok := f.clients[id]; ok {
		return c, nil
	}
	local, err := storage.NewLocal(f.mem, id)
	if err != nil {
		return nil, err
	}
	store, err := auth.NewStore(auth.StoreParams{Storage: local, Gateway: noopGateway{}})
	if err != nil {
		return nil, err
	}
	c := &session.Client{ID: id, Auth: store}
	f.clients[id] = c
	return c, nil
}

func (f *fakeResolver) signInAdmin(t *testing.T, id string) {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": 1,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	ctx := context.Background()
	if err := f.mem.Set(ctx, id, auth.KeyToken, token); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if err := f.mem.Set(ctx, id, auth.KeyUser, `{"id":1,"email":"a@shop.test","role":"admin"}`); err != nil {
		t.Fatalf("set user: %v", err)
	}
}

func TestClientIssuesCookieOnFirstVisit(t *testing.T) {
	resolver := newFakeResolver()
	var seen string
	handler := Client(ClientCookie{Name: "sf_client", MaxAge: time.Hour}, resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIDFromContext(r.Context())
		if ClientFromContext(r.Context()) == nil {
			t.Fatalf("expected client in context")
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "sf_client" {
		t.Fatalf("expected client cookie, got %+v", cookies)
	}
	if !cookies[0].HttpOnly || cookies[0].SameSite != http.SameSiteLaxMode {
		t.Fatalf("cookie flags not set: %+v", cookies[0])
	}
	if seen != cookies[0].Value {
		t.Fatalf("context client %q does not match cookie %q", seen, cookies[0].Value)
	}
}

func TestClientReusesValidCookieAndReplacesTamperedOne(t *testing.T) {
	resolver := newFakeResolver()
	var seen string
	handler := Client(ClientCookie{}, resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIDFromContext(r.Context())
	}))

	const id = "0b8a3f4e-6d0c-4a43-9d8e-3c1f4f1b2a77"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sf_client", Value: id})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != id || len(rec.Result().Cookies()) != 0 {
		t.Fatalf("valid cookie should be reused, got %q cookies=%v", seen, rec.Result().Cookies())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sf_client", Value: "../../other"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen == "../../other" || len(rec.Result().Cookies()) != 1 {
		t.Fatalf("tampered cookie should be replaced, got %q", seen)
	}
}

func TestClientResolutionFailureIsUnavailable(t *testing.T) {
	resolver := newFakeResolver()
	resolver.err = errors.New("redis down")
	handler := Client(ClientCookie{}, resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("next must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	resolver := newFakeResolver()
	reached := false
	handler := Client(ClientCookie{}, resolver, nil)(RequireAdmin(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})))

	const id = "5f1d2c3b-4a59-4e6f-8a7b-9c0d1e2f3a4b"
	req := httptest.NewRequest(http.MethodPost, "/admin/products", nil)
	req.AddCookie(&http.Cookie{Name: "sf_client", Value: id})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if reached || rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("anonymous request should redirect to login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	resolver.signInAdmin(t, id)
	req = httptest.NewRequest(http.MethodPost, "/admin/products", nil)
	req.AddCookie(&http.Cookie{Name: "sf_client", Value: id})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if !reached {
		t.Fatalf("admin request should pass the gate, got %d", rec.Code)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected echoed id, got %q", got)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "<script>")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got == "<script>" || got == "" {
		t.Fatalf("expected unsafe id to be replaced, got %q", got)
	}
}

func TestRecovererAnswersWithEnvelope(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
