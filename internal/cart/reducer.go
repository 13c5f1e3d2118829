// Package cart holds the client cart: a pure reducer over {items, total}, a
// guarded store around it and the service that keeps it in step with the
// backend's persisted cart.
package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/types"
)

type ActionType string

const (
	ActionAddItem        ActionType = "ADD_ITEM"
	ActionRemoveItem     ActionType = "REMOVE_ITEM"
	ActionUpdateQuantity ActionType = "UPDATE_QUANTITY"
	ActionClearCart      ActionType = "CLEAR_CART"
	ActionSetCart        ActionType = "SET_CART"
)

// Action is one cart transition. Only the fields relevant to Type are read.
type Action struct {
	Type         ActionType
	Product      types.Product
	ProductID    int64
	Quantity     int
	ServerItemID int64
	Items        []Item
}

// AddItem adds one unit of p. serverItemID links a new line to its backend
// cart item and may be zero for lines that only exist locally.
func AddItem(p types.Product, serverItemID int64) Action {
	return Action{Type: ActionAddItem, Product: p, ServerItemID: serverItemID}
}

func RemoveItem(productID int64) Action {
	return Action{Type: ActionRemoveItem, ProductID: productID}
}

func UpdateQuantity(productID int64, quantity int) Action {
	return Action{Type: ActionUpdateQuantity, ProductID: productID, Quantity: quantity}
}

func ClearCart() Action {
	return Action{Type: ActionClearCart}
}

func SetCart(items []Item) Action {
	return Action{Type: ActionSetCart, Items: items}
}

// Item is one cart line. Quantity is always at least 1 inside a State.
type Item struct {
	Product      types.Product `json:"product"`
	Quantity     int           `json:"quantity"`
	ServerItemID int64         `json:"serverItemId,omitempty"`
}

func (i Item) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// State is the cart snapshot. Total is derived from Items on every
// transition and never set on its own.
type State struct {
	Items []Item          `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// Find returns the line holding productID.
func (s State) Find(productID int64) (Item, bool) {
	for _, item := range s.Items {
		if item.Product.ID == productID {
			return item, true
		}
	}
	return Item{}, false
}

// Count is the number of units across all lines.
func (s State) Count() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

// Reduce applies action to state and returns the next state. state is never
// modified.
func Reduce(state State, action Action) State {
	var items []Item
	switch action.Type {
	case ActionAddItem:
		items = addItem(state.Items, action.Product, action.ServerItemID)
	case ActionRemoveItem:
		items = removeItem(state.Items, action.ProductID)
	case ActionUpdateQuantity:
		if action.Quantity <= 0 {
			items = removeItem(state.Items, action.ProductID)
			break
		}
		items = cloneItems(state.Items)
		for i := range items {
			if items[i].Product.ID == action.ProductID {
				items[i].Quantity = action.Quantity
			}
		}
	case ActionClearCart:
		items = []Item{}
	case ActionSetCart:
		items = normalize(action.Items)
	default:
		items = cloneItems(state.Items)
	}
	return State{Items: items, Total: total(items)}
}

func addItem(current []Item, p types.Product, serverItemID int64) []Item {
	items := cloneItems(current)
	for i := range items {
		if items[i].Product.ID == p.ID {
			items[i].Quantity++
			if items[i].ServerItemID == 0 {
				items[i].ServerItemID = serverItemID
			}
			return items
		}
	}
	return append(items, Item{Product: p, Quantity: 1, ServerItemID: serverItemID})
}

func removeItem(current []Item, productID int64) []Item {
	items := make([]Item, 0, len(current))
	for _, item := range current {
		if item.Product.ID != productID {
			items = append(items, item)
		}
	}
	return items
}

// normalize merges duplicate product lines, keeping the first line's
// position and snapshot, and drops non-positive quantities.
func normalize(in []Item) []Item {
	items := make([]Item, 0, len(in))
	index := make(map[int64]int, len(in))
	for _, item := range in {
		if item.Quantity <= 0 {
			continue
		}
		if pos, ok := index[item.Product.ID]; ok {
			items[pos].Quantity += item.Quantity
			continue
		}
		index[item.Product.ID] = len(items)
		items = append(items, item)
	}
	return items
}

func cloneItems(in []Item) []Item {
	out := make([]Item, len(in))
	copy(out, in)
	return out
}

func total(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}
