package enums

import "fmt"

// Page is one of the storefront's top-level screens.
type Page string

const (
	PageHome     Page = "home"
	PageLogin    Page = "login"
	PageRegister Page = "register"
	PageCart     Page = "cart"
	PageAdmin    Page = "admin"
)

var validPages = []Page{
	PageHome,
	PageLogin,
	PageRegister,
	PageCart,
	PageAdmin,
}

var pagePaths = map[Page]string{
	PageHome:     "/",
	PageLogin:    "/login",
	PageRegister: "/register",
	PageCart:     "/cart",
	PageAdmin:    "/admin",
}

// String implements fmt.Stringer.
func (p Page) String() string {
	return string(p)
}

// IsValid reports whether the value is a known Page.
func (p Page) IsValid() bool {
	for _, candidate := range validPages {
		if candidate == p {
			return true
		}
	}
	return false
}

// Path returns the URL path of the page; unknown pages map to "/".
func (p Page) Path() string {
	if path, ok := pagePaths[p]; ok {
		return path
	}
	return "/"
}

// ParsePage converts raw input into a Page.
func ParsePage(value string) (Page, error) {
	for _, candidate := range validPages {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid page %q", value)
}

// PageForPath maps a URL path to its page. ok is false for unrecognized paths.
func PageForPath(path string) (Page, bool) {
	for page, candidate := range pagePaths {
		if candidate == path {
			return page, true
		}
	}
	return PageHome, false
}
