// Package types holds the wire-level data model shared by the API client,
// the stores and the mock server.
package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the uniform response wrapper every endpoint returns. Data is
// kept raw so callers decode it into the payload type they expect.
type Envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ResponseEnvelope is the write-side counterpart used when serving responses.
type ResponseEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

type User struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Product is immutable from the cart's perspective; cart lines carry a copy.
type Product struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	Description   string           `json:"description,omitempty"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Images        []string         `json:"images,omitempty"`
	Category      string           `json:"category"`
	Subcategory   string           `json:"subcategory,omitempty"`
	Stock         int              `json:"stock"`
	Rating        decimal.Decimal  `json:"rating"`
	ReviewCount   int              `json:"reviewCount"`
}

// CartLine pairs a product copy with a quantity. Quantity is always >= 1;
// a line never stores zero.
type CartLine struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

func (l CartLine) Total() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartState is the full cart snapshot: the ordered lines plus aggregates
// recomputed from them. The snapshot is also the persisted unit.
type CartState struct {
	Lines     []CartLine      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

// EmptyCart returns a cleared cart with zeroed aggregates.
func EmptyCart() CartState {
	return CartState{Lines: []CartLine{}, Total: decimal.Zero, ItemCount: 0}
}

// Clone returns a deep-enough copy: lines are value types, so copying the
// slice severs the snapshot from the store's internal state.
func (s CartState) Clone() CartState {
	lines := make([]CartLine, len(s.Lines))
	copy(lines, s.Lines)
	return CartState{Lines: lines, Total: s.Total, ItemCount: s.ItemCount}
}

// Line returns the line for productID, if present.
func (s CartState) Line(productID uuid.UUID) (CartLine, bool) {
	for _, line := range s.Lines {
		if line.Product.ID == productID {
			return line, true
		}
	}
	return CartLine{}, false
}

type WishlistEntry struct {
	Product Product   `json:"product"`
	AddedAt time.Time `json:"addedAt"`
}

const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

type OrderItem struct {
	ProductID uuid.UUID       `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type Order struct {
	ID        uuid.UUID       `json:"id"`
	Items     []OrderItem     `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
}
