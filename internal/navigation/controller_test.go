package navigation

import (
	"testing"

	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/types"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path  string
		admin bool
		want  enums.Page
	}{
		{path: "/", want: enums.PageHome},
		{path: "", want: enums.PageHome},
		{path: "/login", want: enums.PageLogin},
		{path: "/register", want: enums.PageRegister},
		{path: "/cart", want: enums.PageCart},
		{path: "/cart/", want: enums.PageCart},
		{path: "/admin", admin: true, want: enums.PageAdmin},
		{path: "/admin", admin: false, want: enums.PageLogin},
		{path: "/nope", want: enums.PageHome},
		{path: "/admin/extra", admin: true, want: enums.PageHome},
	}
	for _, tc := range tests {
		if got := Resolve(tc.path, tc.admin); got != tc.want {
			t.Fatalf("Resolve(%q, %v) = %s, want %s", tc.path, tc.admin, got, tc.want)
		}
	}
}

func TestInitialTrustsPersistedFlagThenPopStateUsesLive(t *testing.T) {
	t.Parallel()

	c := NewController()
	d := c.Visit("/admin", true, false)
	if d.Page != enums.PageAdmin || d.Redirect {
		t.Fatalf("initial load with persisted admin flag should open admin, got %+v", d)
	}

	d = c.Visit("/admin", true, false)
	if d.Page != enums.PageLogin || !d.Redirect || d.Path != "/login" {
		t.Fatalf("history navigation should use the live flag, got %+v", d)
	}
	if c.Current() != enums.PageLogin {
		t.Fatalf("current page not updated")
	}
}

func TestUnknownPathRedirectsHome(t *testing.T) {
	t.Parallel()

	d := NewController().Initial("/promo", false)
	if d.Page != enums.PageHome || !d.Redirect || d.Path != "/" {
		t.Fatalf("unexpected decision %+v", d)
	}
}

func TestProgrammaticNavigation(t *testing.T) {
	t.Parallel()

	c := NewController()
	if got := c.AfterLogin(&types.User{Role: enums.RoleAdmin}); got != "/admin" {
		t.Fatalf("admin login should go to /admin, got %s", got)
	}
	if got := c.AfterLogin(&types.User{Role: enums.RoleUser}); got != "/cart" {
		t.Fatalf("shopper login should go to /cart, got %s", got)
	}
	if got := c.AfterRegister(); got != "/cart" {
		t.Fatalf("register should go to /cart, got %s", got)
	}
	if got := c.AfterAdminLogout(); got != "/" || c.Current() != enums.PageHome {
		t.Fatalf("admin logout should go home, got %s", got)
	}
	if got := c.Navigate(enums.Page("bogus")); got != "/" {
		t.Fatalf("unknown page should navigate home, got %s", got)
	}

	// a navigation counts as the initial load
	if d := c.Visit("/admin", true, false); d.Page != enums.PageLogin {
		t.Fatalf("expected live flag after programmatic navigation, got %+v", d)
	}
}
