package types

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/enums"
)

// ServerCart is the backend's persisted cart for one user.
type ServerCart struct {
	ID          int64            `json:"id"`
	UserID      int64            `json:"userId"`
	TotalAmount decimal.Decimal  `json:"totalAmount"`
	Items       []ServerCartItem `json:"items,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// ServerCartItem keeps the unit price captured when the line was added.
type ServerCartItem struct {
	ID         int64           `json:"id"`
	CartID     int64           `json:"cartId"`
	ProductID  int64           `json:"productId"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Product    *Product        `json:"product,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

type Order struct {
	ID              int64             `json:"id"`
	UserID          int64             `json:"userId"`
	TotalAmount     decimal.Decimal   `json:"totalAmount"`
	Status          enums.OrderStatus `json:"status"`
	ShippingAddress string            `json:"shippingAddress,omitempty"`
	OrderItems      []OrderItem       `json:"orderItems,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
}

type OrderItem struct {
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}
