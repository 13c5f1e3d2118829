// Package navigation maps request paths and the session's admin state to one
// of the storefront pages and keeps the client's current page.
package navigation

import (
	"strings"
	"sync"

	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/types"
)

// Resolve maps path to a page. /admin without admin rights resolves to the
// login page; unknown paths resolve to home.
func Resolve(path string, admin bool) enums.Page {
	page, _ := enums.PageForPath(cleanPath(path))
	if page == enums.PageAdmin && !admin {
		return enums.PageLogin
	}
	return page
}

// Decision is the outcome of resolving a requested path. Redirect is set when
// the address bar must be rewritten to Path.
type Decision struct {
	Page     enums.Page
	Path     string
	Redirect bool
}

// Controller holds one client's current page. The admin gate is a display
// convenience; the backend authorizes every admin write on its own.
type Controller struct {
	mu          sync.Mutex
	current     enums.Page
	initialized bool
}

func NewController() *Controller {
	return &Controller{current: enums.PageHome}
}

// Visit resolves a page request. The first request of a client is its initial
// load and trusts the persisted admin flag; later ones are history
// navigations checked against the live session.
func (c *Controller) Visit(path string, legacyAdmin, liveAdmin bool) Decision {
	c.mu.Lock()
	first := !c.initialized
	c.mu.Unlock()
	if first {
		return c.Initial(path, legacyAdmin)
	}
	return c.PopState(path, liveAdmin)
}

// Initial derives the first page from the path and the persisted admin flag.
func (c *Controller) Initial(path string, legacyAdmin bool) Decision {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initialized = true
	return c.settle(path, legacyAdmin)
}

// PopState re-derives the page after a back/forward navigation.
func (c *Controller) PopState(path string, liveAdmin bool) Decision {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initialized = true
	return c.settle(path, liveAdmin)
}

// Navigate moves to page and returns the path to push.
func (c *Controller) Navigate(page enums.Page) string {
	if !page.IsValid() {
		page = enums.PageHome
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initialized = true
	c.current = page
	return page.Path()
}

// AfterLogin sends admins to the console and everyone else to their cart.
func (c *Controller) AfterLogin(user *types.User) string {
	if user != nil && user.IsAdmin() {
		return c.Navigate(enums.PageAdmin)
	}
	return c.Navigate(enums.PageCart)
}

func (c *Controller) AfterRegister() string {
	return c.Navigate(enums.PageCart)
}

func (c *Controller) AfterAdminLogout() string {
	return c.Navigate(enums.PageHome)
}

func (c *Controller) Current() enums.Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Controller) settle(path string, admin bool) Decision {
	page := Resolve(path, admin)
	c.current = page
	return Decision{Page: page, Path: page.Path(), Redirect: page.Path() != cleanPath(path)}
}

func cleanPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return "/"
		}
	}
	return path
}
