package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/storefront/pkg/types"
)

// ProductQuery narrows GET /products. Blank fields are not sent.
type ProductQuery struct {
	Category string
	Search   string
}

func (q ProductQuery) values() url.Values {
	values := url.Values{}
	if c := strings.TrimSpace(q.Category); c != "" {
		values.Set("category", c)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		values.Set("search", s)
	}
	return values
}

type productPayload struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Price       json.Number       `json:"price"`
	Stock       int               `json:"stock"`
	ImageURL    string            `json:"imageUrl,omitempty"`
	CategoryID  types.CategoryRef `json:"categoryId,omitempty"`
	IsActive    bool              `json:"isActive"`
	UserEmail   string            `json:"userEmail"`
}

func newProductPayload(in types.ProductInput, email string) productPayload {
	return productPayload{
		Name:        in.Name,
		Description: in.Description,
		Price:       number(in.Price),
		Stock:       in.Stock,
		ImageURL:    in.ImageURL,
		CategoryID:  in.CategoryID,
		IsActive:    in.IsActive,
		UserEmail:   email,
	}
}

func (a *API) ListProducts(ctx context.Context, q ProductQuery) ([]types.Product, error) {
	var out []types.Product
	if err := a.do(ctx, call{
		endpoint: "products.list",
		method:   http.MethodGet,
		path:     "/products",
		query:    q.values(),
		out:      &out,
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) GetProduct(ctx context.Context, id int64) (*types.Product, error) {
	var out *types.Product
	if err := a.do(ctx, call{
		endpoint: "products.get",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/products/%d", id),
		out:      &out,
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProduct requires an admin email and fails before the network without one.
func (a *API) CreateProduct(ctx context.Context, in types.ProductInput) (*types.Product, error) {
	email, err := a.adminEmail(ctx)
	if err != nil {
		return nil, err
	}
	var out *types.Product
	if err := a.do(ctx, call{
		endpoint: "products.create",
		method:   http.MethodPost,
		path:     "/products",
		body:     newProductPayload(in, email),
		out:      &out,
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) UpdateProduct(ctx context.Context, id int64, in types.ProductInput) (*types.Product, error) {
	email, err := a.adminEmail(ctx)
	if err != nil {
		return nil, err
	}
	var out *types.Product
	if err := a.do(ctx, call{
		endpoint: "products.update",
		method:   http.MethodPut,
		path:     fmt.Sprintf("/products/%d", id),
		body:     newProductPayload(in, email),
		out:      &out,
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) DeleteProduct(ctx context.Context, id int64) error {
	email, err := a.adminEmail(ctx)
	if err != nil {
		return err
	}
	return a.do(ctx, call{
		endpoint: "products.delete",
		method:   http.MethodDelete,
		path:     fmt.Sprintf("/products/%d", id),
		body:     map[string]string{"userEmail": email},
	})
}

func (a *API) ListCategories(ctx context.Context) ([]types.Category, error) {
	var out []types.Category
	if err := a.do(ctx, call{
		endpoint: "categories.list",
		method:   http.MethodGet,
		path:     "/categories",
		out:      &out,
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) GetCategory(ctx context.Context, id string) (*types.Category, error) {
	var out *types.Category
	if err := a.do(ctx, call{
		endpoint: "categories.get",
		method:   http.MethodGet,
		path:     "/categories/" + url.PathEscape(id),
		out:      &out,
	}); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) CategoryProducts(ctx context.Context, id string) ([]types.Product, error) {
	var out []types.Product
	if err := a.do(ctx, call{
		endpoint: "categories.products",
		method:   http.MethodGet,
		path:     "/categories/" + url.PathEscape(id) + "/products",
		out:      &out,
	}); err != nil {
		return nil, err
	}
	return out, nil
}
