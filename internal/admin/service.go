// Package admin implements the product management console: form parsing,
// inline image encoding and the write-then-refetch product flow.
package admin

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

type productAPI interface {
	ListProducts(ctx context.Context, q gateway.ProductQuery) ([]types.Product, error)
	ListCategories(ctx context.Context) ([]types.Category, error)
	GetProduct(ctx context.Context, id int64) (*types.Product, error)
	CreateProduct(ctx context.Context, in types.ProductInput) (*types.Product, error)
	UpdateProduct(ctx context.Context, id int64, in types.ProductInput) (*types.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type catalogInvalidator interface {
	Invalidate(ctx context.Context)
}

// Overview is the admin page model.
type Overview struct {
	Products   []types.Product
	Categories []types.Category
	Taxonomy   []enums.CategoryGroup
}

// ServiceParams bundles the dependencies required to build an admin service.
type ServiceParams struct {
	API     productAPI
	Catalog catalogInvalidator
	Logger  *logger.Logger
}

type Service struct {
	api     productAPI
	catalog catalogInvalidator
	logg    *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.API == nil {
		return nil, fmt.Errorf("product api is required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog invalidator is required")
	}
	return &Service{api: params.API, catalog: params.Catalog, logg: params.Logger}, nil
}

// Overview fetches products and categories concurrently. Categories are
// informational; their failure only logs.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	out := Overview{Taxonomy: enums.Taxonomy()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		products, err := s.api.ListProducts(gctx, gateway.ProductQuery{})
		if err != nil {
			return err
		}
		out.Products = products
		return nil
	})
	g.Go(func() error {
		categories, err := s.api.ListCategories(gctx)
		if err != nil {
			s.warn(ctx, "admin.categories_failed", err)
			return nil
		}
		out.Categories = categories
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{Taxonomy: out.Taxonomy}, err
	}
	if out.Products == nil {
		out.Products = []types.Product{}
	}
	return out, nil
}

func (s *Service) Product(ctx context.Context, id int64) (*types.Product, error) {
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id")
	}
	p, err := s.api.GetProduct(ctx, id)
	if gateway.IsNotFound(err) || (err == nil && p == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return p, err
}

// Save creates the product when id is zero and updates it otherwise. The
// catalog is invalidated and the list refetched only after the write
// returned.
func (s *Service) Save(ctx context.Context, id int64, input types.ProductInput) (*types.Product, Overview, error) {
	var (
		saved *types.Product
		err   error
	)
	if id == 0 {
		saved, err = s.api.CreateProduct(ctx, input)
	} else {
		saved, err = s.api.UpdateProduct(ctx, id, input)
	}
	if err != nil {
		return nil, Overview{}, err
	}
	s.catalog.Invalidate(ctx)

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"product_id": savedID(saved, id), "created": id == 0})
		s.logg.Info(logCtx, "admin.product_saved")
	}

	overview, err := s.Overview(ctx)
	return saved, overview, err
}

func (s *Service) Delete(ctx context.Context, id int64) (Overview, error) {
	if id <= 0 {
		return Overview{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id")
	}
	if err := s.api.DeleteProduct(ctx, id); err != nil {
		return Overview{}, err
	}
	s.catalog.Invalidate(ctx)
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "product_id", id), "admin.product_deleted")
	}
	return s.Overview(ctx)
}

func savedID(p *types.Product, fallback int64) int64 {
	if p != nil && p.ID != 0 {
		return p.ID
	}
	return fallback
}

func (s *Service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}
