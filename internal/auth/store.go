// Package auth owns the shopper's session: the bearer token and user kept in
// durable client storage, and the identity transitions other components react to.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	pkgauth "github.com/angelmondragon/storefront/pkg/auth"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/gateway"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/types"
)

// Durable storage keys. adminUser is kept for the admin-only login flow.
const (
	KeyToken       = "auth_token"
	KeyUser        = "auth_user"
	KeyLegacyAdmin = "adminUser"
)

const (
	invalidCredentialsMessage = "invalid email or password"
	minPasswordLength         = 6
)

type authGateway interface {
	Login(ctx context.Context, creds types.Credentials) (*types.AuthResponse, error)
	Register(ctx context.Context, reg types.Registration) (*types.AuthResponse, error)
}

type sessionStorage interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, keys ...string) error
}

// IdentityListener is called with the previous and next authenticated user
// whenever the effective identity changes. Either side may be nil.
type IdentityListener func(ctx context.Context, prev, next *types.User)

// StoreParams bundles the dependencies required to build an auth store.
type StoreParams struct {
	Storage sessionStorage
	Gateway authGateway
	Logger  *logger.Logger
	Now     func() time.Time
}

// Store is the single writer of the session keys. It never caches their
// values: every check re-reads storage.
type Store struct {
	storage  sessionStorage
	gateway  authGateway
	logg     *logger.Logger
	now      func() time.Time
	validate *validator.Validate

	mu        sync.Mutex
	identity  *types.User
	listeners map[int]IdentityListener
	nextID    int
}

// Session is one consistent read of the persisted session.
type Session struct {
	Token         string
	User          *types.User
	Authenticated bool
}

func NewStore(params StoreParams) (*Store, error) {
	if params.Storage == nil {
		return nil, fmt.Errorf("session storage is required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("auth gateway is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		storage:   params.Storage,
		gateway:   params.Gateway,
		logg:      params.Logger,
		now:       now,
		validate:  validator.New(),
		listeners: make(map[int]IdentityListener),
	}, nil
}

// Session reads token and user from storage and derives the authenticated flag
// from the token's expiry against the current clock.
func (s *Store) Session(ctx context.Context) Session {
	var out Session
	token, ok, err := s.storage.GetItem(ctx, KeyToken)
	if err != nil {
		s.warn(ctx, "auth.read_token_failed", err)
	}
	if ok {
		out.Token = token
	}
	out.User = s.readUser(ctx, KeyUser)
	out.Authenticated = out.Token != "" && pkgauth.IsLive(out.Token, s.now())
	return out
}

func (s *Store) IsAuthenticated(ctx context.Context) bool {
	return s.Session(ctx).Authenticated
}

// CurrentUser returns the stored user of an authenticated session.
func (s *Store) CurrentUser(ctx context.Context) *types.User {
	session := s.Session(ctx)
	if !session.Authenticated {
		return nil
	}
	return session.User
}

func (s *Store) IsAdmin(ctx context.Context) bool {
	user := s.CurrentUser(ctx)
	return user != nil && user.IsAdmin()
}

// LegacyAdmin reports whether the adminUser key holds an admin. It is only a
// hint for the first page load; IsAdmin is the live check.
func (s *Store) LegacyAdmin(ctx context.Context) bool {
	user := s.readUser(ctx, KeyLegacyAdmin)
	return user != nil && user.IsAdmin()
}

// Token returns the stored bearer token, expired or not; the backend decides.
func (s *Store) Token(ctx context.Context) string {
	return s.Session(ctx).Token
}

// AdminEmail resolves the acting admin for product writes.
func (s *Store) AdminEmail(ctx context.Context) string {
	if admin := s.readUser(ctx, KeyLegacyAdmin); admin != nil && admin.Email != "" {
		return admin.Email
	}
	if user := s.CurrentUser(ctx); user != nil && user.IsAdmin() {
		return user.Email
	}
	return ""
}

func (s *Store) Login(ctx context.Context, creds types.Credentials) (*types.User, error) {
	creds.Email = strings.TrimSpace(creds.Email)
	if err := s.validate.Struct(creds); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "email and password are required")
	}

	resp, err := s.gateway.Login(ctx, creds)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeAPI) {
			msg := gateway.ServerMessage(err)
			if msg == "" {
				msg = invalidCredentialsMessage
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidCredentials, err, msg)
		}
		return nil, err
	}
	if err := s.persist(ctx, resp); err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, resp.User.IDString()), "auth.login")
	}
	return &resp.User, nil
}

// RegisterForm is the registration page input.
type RegisterForm struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Register validates the form locally, creates the account and signs the new
// user in exactly like Login.
func (s *Store) Register(ctx context.Context, form RegisterForm) (*types.User, error) {
	if form.Password != form.ConfirmPassword {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "passwords do not match").
			WithDetails(map[string]string{"confirmPassword": "must match password"})
	}
	if len(form.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("password must be at least %d characters", minPasswordLength)).
			WithDetails(map[string]string{"password": fmt.Sprintf("must be at least %d characters", minPasswordLength)})
	}
	reg := types.Registration{
		FirstName: strings.TrimSpace(form.FirstName),
		LastName:  strings.TrimSpace(form.LastName),
		Email:     strings.TrimSpace(form.Email),
		Password:  form.Password,
	}
	if err := s.validate.Struct(reg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "all fields are required and the email must be valid")
	}

	resp, err := s.gateway.Register(ctx, reg)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, resp); err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, resp.User.IDString()), "auth.register")
	}
	return &resp.User, nil
}

// Logout clears every session key, including the legacy admin flag.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.storage.RemoveItem(ctx, KeyToken, KeyUser, KeyLegacyAdmin); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear session")
	}
	s.Refresh(ctx)
	return nil
}

// Expire is the forced logout after the backend rejected the token.
func (s *Store) Expire(ctx context.Context) {
	if s.logg != nil {
		s.logg.Warn(ctx, "auth.session_expired")
	}
	if err := s.Logout(ctx); err != nil {
		s.warn(ctx, "auth.expire_failed", err)
	}
}

// OnIdentityChange registers fn and returns a function removing it.
func (s *Store) OnIdentityChange(fn IdentityListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Refresh re-derives the identity from storage and notifies listeners when it
// differs from the last one seen. It is safe to call redundantly.
func (s *Store) Refresh(ctx context.Context) {
	next := s.CurrentUser(ctx)

	s.mu.Lock()
	prev := s.identity
	if sameIdentity(prev, next) {
		s.mu.Unlock()
		return
	}
	s.identity = next
	listeners := make([]IdentityListener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, prev, next)
	}
}

func (s *Store) persist(ctx context.Context, resp *types.AuthResponse) error {
	token := resp.BearerToken()
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeAPI, "authentication response did not include a token")
	}
	encoded, err := json.Marshal(resp.User)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode user")
	}
	// token first: a watcher never sees the new user paired with an old token
	if err := s.storage.SetItem(ctx, KeyToken, token); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store token")
	}
	if err := s.storage.SetItem(ctx, KeyUser, string(encoded)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store user")
	}
	if resp.User.IsAdmin() {
		err = s.storage.SetItem(ctx, KeyLegacyAdmin, string(encoded))
	} else {
		err = s.storage.RemoveItem(ctx, KeyLegacyAdmin)
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store admin flag")
	}
	s.Refresh(ctx)
	return nil
}

func (s *Store) readUser(ctx context.Context, key string) *types.User {
	raw, ok, err := s.storage.GetItem(ctx, key)
	if err != nil {
		s.warn(ctx, "auth.read_user_failed", err)
		return nil
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	var user types.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		s.warn(ctx, "auth.decode_user_failed", err)
		return nil
	}
	return &user
}

func (s *Store) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}

func sameIdentity(a, b *types.User) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}
