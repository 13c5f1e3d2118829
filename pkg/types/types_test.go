package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCategoryRefAcceptsStringsAndNumbers(t *testing.T) {
	type payload struct {
		CategoryID CategoryRef `json:"categoryId"`
	}

	cases := map[string]CategoryRef{
		`{"categoryId":"homme-chemises"}`: "homme-chemises",
		`{"categoryId":12}`:               "12",
		`{"categoryId":null}`:             "",
		`{}`:                              "",
	}
	for raw, want := range cases {
		var got payload
		if err := json.Unmarshal([]byte(raw), &got); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if got.CategoryID != want {
			t.Fatalf("%s: expected %q got %q", raw, want, got.CategoryID)
		}
	}

	var bad payload
	if err := json.Unmarshal([]byte(`{"categoryId":true}`), &bad); err == nil {
		t.Fatalf("expected boolean category id to fail")
	}
}

func TestCategoryRefMarshalKeepsNumericIDsNumeric(t *testing.T) {
	out, err := json.Marshal(map[string]CategoryRef{"a": "7", "b": "bottes"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"a":7,"b":"bottes"}` {
		t.Fatalf("unexpected json %s", out)
	}
}

func TestProductDecodesStringPrices(t *testing.T) {
	raw := `{"id":3,"name":"Chemise","description":"Lin","price":"19.90","stock":0,"isActive":true,"categoryId":"homme-chemises"}`
	var p Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !p.Price.Equal(decimal.RequireFromString("19.90")) {
		t.Fatalf("unexpected price %s", p.Price)
	}
	if p.InStock() {
		t.Fatalf("stock 0 should not be in stock")
	}
	if p.HasDataImage() {
		t.Fatalf("no image set")
	}
	p.ImageURL = "data:image/png;base64,AAAA"
	if !p.HasDataImage() {
		t.Fatalf("expected data uri detection")
	}
}
