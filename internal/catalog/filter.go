// Package catalog renders the product list: one fetch of the full catalog,
// then category and search filtering applied locally.
package catalog

import (
	"strings"

	"github.com/angelmondragon/storefront/pkg/types"
)

// Criteria are the active filters. A blank field disables its filter.
type Criteria struct {
	Category string `json:"category,omitempty"`
	Search   string `json:"search,omitempty"`
}

// Normalized trims both fields.
func (c Criteria) Normalized() Criteria {
	return Criteria{
		Category: strings.TrimSpace(c.Category),
		Search:   strings.TrimSpace(c.Search),
	}
}

// Active reports whether any filter applies.
func (c Criteria) Active() bool {
	n := c.Normalized()
	return n.Category != "" || n.Search != ""
}

// Filter keeps the products matching every active criterion, in their
// original order. products is not modified.
func Filter(products []types.Product, c Criteria) []types.Product {
	c = c.Normalized()
	needle := strings.ToLower(c.Search)

	out := make([]types.Product, 0, len(products))
	for _, p := range products {
		if c.Category != "" && strings.TrimSpace(p.CategoryID.String()) != c.Category {
			continue
		}
		if needle != "" && !matchesSearch(p, needle) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func matchesSearch(p types.Product, needle string) bool {
	return strings.Contains(strings.ToLower(p.Name), needle) ||
		strings.Contains(strings.ToLower(p.Description), needle)
}
