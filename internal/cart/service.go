package cart

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

const productFetchConcurrency = 4

type cartAPI interface {
	GetUserCart(ctx context.Context, userID int64) (*types.ServerCart, error)
	CreateCart(ctx context.Context, userID int64) (*types.ServerCart, error)
	UpdateCartTotal(ctx context.Context, id int64, total decimal.Decimal) error
	ListCartItems(ctx context.Context, cartID int64) ([]types.ServerCartItem, error)
	AddCartItem(ctx context.Context, cartID, productID int64, quantity int, unitPrice decimal.Decimal) (*types.ServerCartItem, error)
	UpdateCartItemQuantity(ctx context.Context, itemID int64, quantity int) (*types.ServerCartItem, error)
	RemoveCartItem(ctx context.Context, itemID int64) error
	GetProduct(ctx context.Context, id int64) (*types.Product, error)
	CreateOrder(ctx context.Context) (*types.Order, error)
}

type identitySource interface {
	CurrentUser(ctx context.Context) *types.User
}

// ServiceParams bundles the dependencies required to build a cart service.
type ServiceParams struct {
	Store    *Store
	API      cartAPI
	Identity identitySource
	Logger   *logger.Logger
}

// Service mirrors every cart mutation to the backend before applying it to
// the local store. Mutations of one client are serialized.
type Service struct {
	store    *Store
	api      cartAPI
	identity identitySource
	logg     *logger.Logger

	mu     sync.Mutex
	cartID atomic.Int64
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("cart store is required")
	}
	if params.API == nil {
		return nil, fmt.Errorf("cart api is required")
	}
	if params.Identity == nil {
		return nil, fmt.Errorf("identity source is required")
	}
	return &Service{
		store:    params.Store,
		api:      params.API,
		identity: params.Identity,
		logg:     params.Logger,
	}, nil
}

func (s *Service) State() State {
	return s.store.State()
}

// HandleIdentityChange is registered as an auth identity listener.
func (s *Service) HandleIdentityChange(ctx context.Context, _, next *types.User) {
	if err := s.Reconcile(ctx, next); err != nil {
		s.warn(ctx, "cart.reconcile_failed", err)
	}
}

// Reconcile replaces the local cart with the server cart of user. A nil user
// clears the cart. It never takes the mutation lock for the logout path,
// which can be reached from inside a mutation that hit an expired session.
func (s *Service) Reconcile(ctx context.Context, user *types.User) error {
	if user == nil {
		s.cartID.Store(0)
		s.store.Dispatch(ClearCart())
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items, cartID, err := s.fetchServerCart(ctx, user)
	if err != nil {
		s.cartID.Store(0)
		s.store.Dispatch(ClearCart())
		return err
	}
	s.cartID.Store(cartID)
	state := s.store.Dispatch(SetCart(items))
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"user_id": user.IDString(),
			"cart_id": cartID,
			"lines":   len(state.Items),
		})
		s.logg.Debug(logCtx, "cart.reconciled")
	}
	return nil
}

func (s *Service) fetchServerCart(ctx context.Context, user *types.User) ([]Item, int64, error) {
	serverCart, err := s.api.GetUserCart(ctx, user.ID)
	if err != nil {
		return nil, 0, err
	}
	if serverCart == nil {
		return nil, 0, nil
	}
	lines, err := s.api.ListCartItems(ctx, serverCart.ID)
	if err != nil {
		return nil, 0, err
	}

	products := make([]*types.Product, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(productFetchConcurrency)
	for i, line := range lines {
		if line.Product != nil {
			products[i] = line.Product
			continue
		}
		g.Go(func() error {
			p, err := s.api.GetProduct(gctx, line.ProductID)
			if gateway.IsNotFound(err) {
				return nil
			}
			if err != nil {
				return err
			}
			products[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	items := make([]Item, 0, len(lines))
	for i, line := range lines {
		if products[i] == nil {
			continue
		}
		snapshot := *products[i]
		if !line.UnitPrice.IsZero() || snapshot.Price.IsZero() {
			snapshot.Price = line.UnitPrice
		}
		items = append(items, Item{Product: snapshot, Quantity: line.Quantity, ServerItemID: line.ID})
	}
	return items, serverCart.ID, nil
}

// Add puts one unit of p in the cart, creating the server cart on first use.
func (s *Service) Add(ctx context.Context, p types.Product) (State, error) {
	user := s.identity.CurrentUser(ctx)
	if user == nil {
		return State{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "you must be logged in to add items to your cart")
	}
	if !p.InStock() {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is out of stock", p.Name))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cartID, err := s.ensureCart(ctx, user)
	if err != nil {
		return State{}, err
	}

	var serverItemID int64
	if line, ok := s.store.State().Find(p.ID); ok && line.ServerItemID != 0 {
		if _, err := s.api.UpdateCartItemQuantity(ctx, line.ServerItemID, line.Quantity+1); err != nil {
			return State{}, err
		}
		serverItemID = line.ServerItemID
	} else {
		created, err := s.api.AddCartItem(ctx, cartID, p.ID, 1, p.Price)
		if err != nil {
			return State{}, err
		}
		if created != nil {
			serverItemID = created.ID
		}
	}

	state := s.store.Dispatch(AddItem(p, serverItemID))
	s.pushTotal(ctx, cartID, state)
	return state, nil
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less
// removes it.
func (s *Service) UpdateQuantity(ctx context.Context, productID int64, quantity int) (State, error) {
	if quantity <= 0 {
		return s.Remove(ctx, productID)
	}
	if err := s.requireUser(ctx); err != nil {
		return State{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := s.line(productID)
	if err != nil {
		return State{}, err
	}
	if line.ServerItemID != 0 {
		if _, err := s.api.UpdateCartItemQuantity(ctx, line.ServerItemID, quantity); err != nil {
			return State{}, err
		}
	}
	state := s.store.Dispatch(UpdateQuantity(productID, quantity))
	s.pushTotal(ctx, s.cartID.Load(), state)
	return state, nil
}

func (s *Service) Remove(ctx context.Context, productID int64) (State, error) {
	if err := s.requireUser(ctx); err != nil {
		return State{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := s.line(productID)
	if err != nil {
		return State{}, err
	}
	if line.ServerItemID != 0 {
		if err := s.api.RemoveCartItem(ctx, line.ServerItemID); err != nil {
			return State{}, err
		}
	}
	state := s.store.Dispatch(RemoveItem(productID))
	s.pushTotal(ctx, s.cartID.Load(), state)
	return state, nil
}

// Clear removes every line. Lines whose server removal failed stay in the
// cart and the combined error is returned.
func (s *Service) Clear(ctx context.Context) (State, error) {
	if err := s.requireUser(ctx); err != nil {
		return State{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs error
	for _, line := range s.store.State().Items {
		if line.ServerItemID != 0 {
			if err := s.api.RemoveCartItem(ctx, line.ServerItemID); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
		}
		s.store.Dispatch(RemoveItem(line.Product.ID))
	}
	state := s.store.State()
	s.pushTotal(ctx, s.cartID.Load(), state)
	if errs != nil {
		if len(multierr.Errors(errs)) == 1 {
			return state, errs
		}
		return state, pkgerrors.Wrap(pkgerrors.CodeAPI, errs, "some items could not be removed from your cart")
	}
	return state, nil
}

// Checkout turns the server cart into an order and empties the local cart.
func (s *Service) Checkout(ctx context.Context) (*types.Order, error) {
	if err := s.requireUser(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.State().IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "your cart is empty")
	}
	order, err := s.api.CreateOrder(ctx)
	if err != nil {
		return nil, err
	}
	s.cartID.Store(0)
	s.store.Dispatch(ClearCart())
	if s.logg != nil && order != nil {
		s.logg.Info(s.logg.WithField(ctx, "order_id", order.ID), "cart.checkout")
	}
	return order, nil
}

func (s *Service) ensureCart(ctx context.Context, user *types.User) (int64, error) {
	if id := s.cartID.Load(); id != 0 {
		return id, nil
	}
	existing, err := s.api.GetUserCart(ctx, user.ID)
	if err != nil {
		return 0, err
	}
	if existing == nil {
		existing, err = s.api.CreateCart(ctx, user.ID)
		if err != nil {
			return 0, err
		}
		if existing == nil || existing.ID == 0 {
			return 0, pkgerrors.New(pkgerrors.CodeAPI, "store backend did not return a cart")
		}
	}
	s.cartID.Store(existing.ID)
	return existing.ID, nil
}

func (s *Service) requireUser(ctx context.Context) error {
	if s.identity.CurrentUser(ctx) == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "you must be logged in to manage your cart")
	}
	return nil
}

func (s *Service) line(productID int64) (Item, error) {
	line, ok := s.store.State().Find(productID)
	if !ok {
		return Item{}, pkgerrors.New(pkgerrors.CodeNotFound, "item is not in your cart")
	}
	return line, nil
}

// pushTotal keeps the server total aligned. A failure is logged only: the
// line write it follows already succeeded.
func (s *Service) pushTotal(ctx context.Context, cartID int64, state State) {
	if cartID == 0 {
		return
	}
	if err := s.api.UpdateCartTotal(ctx, cartID, state.Total); err != nil {
		s.warn(ctx, "cart.push_total_failed", err)
	}
}

func (s *Service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}
