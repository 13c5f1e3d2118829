// Package views renders the storefront pages from embedded templates.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/admin"
	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/types"
)

//go:embed templates/*.html
var files embed.FS

// Page is the layout model shared by every screen.
type Page struct {
	Title     string
	Current   enums.Page
	User      *types.User
	Admin     bool
	CartCount int
	Alert     string
	Notice    string
	Fields    map[string]string
	RequestID string
	Content   any
}

// HomeContent is the product list. Return is the listing URL an add-to-cart
// post comes back to.
type HomeContent struct {
	View     catalog.View
	Taxonomy []enums.CategoryGroup
	Return   string
}

type LoginContent struct {
	Email string
}

type RegisterContent struct {
	Form auth.RegisterForm
}

type CartContent struct {
	Authenticated bool
	State         cart.State
	Order         *types.Order
}

type AdminContent struct {
	Overview  admin.Overview
	Form      admin.ProductForm
	EditingID int64
	MaxImage  string
}

var pageFiles = map[enums.Page]string{
	enums.PageHome:     "templates/home.html",
	enums.PageLogin:    "templates/login.html",
	enums.PageRegister: "templates/register.html",
	enums.PageCart:     "templates/cart.html",
	enums.PageAdmin:    "templates/admin.html",
}

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string {
		return d.StringFixed(2) + " €"
	},
	"categoryLabel": func(slug string) string {
		return enums.CategorySlug(slug).Label()
	},
	"imageSrc": imageSrc,
}

// imageSrc lets inline image data URIs through the URL sanitizer and drops
// anything that is neither one nor an http(s) link.
func imageSrc(src string) template.URL {
	switch {
	case strings.HasPrefix(src, "data:image/"):
		return template.URL(src)
	case strings.HasPrefix(src, "https://"), strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "/"):
		return template.URL(src)
	default:
		return ""
	}
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	pages map[enums.Page]*template.Template
}

func New() (*Renderer, error) {
	pages := make(map[enums.Page]*template.Template, len(pageFiles))
	for page, file := range pageFiles {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(files, "templates/layout.html", file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		pages[page] = tmpl
	}
	return &Renderer{pages: pages}, nil
}

// Render executes page into a buffer first so a template error never sends a
// half-written document.
func (r *Renderer) Render(w http.ResponseWriter, status int, page enums.Page, data Page) error {
	tmpl, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("no template for page %q", page)
	}
	data.Current = page

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
