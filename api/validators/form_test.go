package validators

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type sampleForm struct {
	Name     string `form:"name"`
	Email    string `json:"email"`
	Confirm  string
	Active   bool   `form:"isActive"`
	Quantity int64  `form:"quantity"`
	Skipped  string `form:"-"`
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestDecodeFormUsesTagsAndFieldNames(t *testing.T) {
	req := postForm(url.Values{
		"name":     {"Veste"},
		"email":    {"a@shop.test"},
		"confirm":  {"secret"},
		"isActive": {"on"},
		"quantity": {" 3 "},
		"Skipped":  {"x"},
	})

	var got sampleForm
	if err := DecodeForm(req, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := sampleForm{Name: "Veste", Email: "a@shop.test", Confirm: "secret", Active: true, Quantity: 3}
	if got != want {
		t.Fatalf("expected %+v got %+v", want, got)
	}
}

func TestDecodeFormUncheckedBoxIsFalse(t *testing.T) {
	got := sampleForm{Active: true}
	if err := DecodeForm(postForm(url.Values{"name": {"x"}}), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Active {
		t.Fatalf("missing checkbox should decode as false")
	}
}

func TestDecodeFormRejectsNonNumeric(t *testing.T) {
	var got sampleForm
	err := DecodeForm(postForm(url.Values{"quantity": {"two"}}), &got)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeFormMultipart(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("name", "Sac")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var got sampleForm
	if err := DecodeForm(req, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Name != "Sac" {
		t.Fatalf("expected multipart value, got %+v", got)
	}
}

func TestParseID(t *testing.T) {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("productId", "12")
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	id, err := ParseID(req, "productId")
	if err != nil || id != 12 {
		t.Fatalf("expected 12, got %d %v", id, err)
	}

	rctx.URLParams = chi.RouteParams{}
	rctx.URLParams.Add("productId", "-1")
	if _, err := ParseID(req, "productId"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative id, got %v", err)
	}
}

func TestParseFormInt(t *testing.T) {
	req := postForm(url.Values{"quantity": {"4"}})
	if n, err := ParseFormInt(req, "quantity", 0, 99); err != nil || n != 4 {
		t.Fatalf("expected 4, got %d %v", n, err)
	}
	req = postForm(url.Values{"quantity": {"100"}})
	if _, err := ParseFormInt(req, "quantity", 0, 99); err == nil {
		t.Fatalf("expected range error")
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  chemise  ", 4); got != "chem" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestSanitizeStringKeepsRunesWhole(t *testing.T) {
	if got := SanitizeString("écharpe", 2); got != "éc" {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeString("robe\x00\tlongue", 0); got != "robelongue" {
		t.Fatalf("control characters should be dropped, got %q", got)
	}
}
