package domain

import "time"

// MaxLineQuantity caps the units of one product or variant per line.
const MaxLineQuantity = 1000

// CartLine is a persisted cart row. Unit price is never stored; it is
// resolved from the live product or variant when the cart is priced.
type CartLine struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	ProductID string    `json:"productId"`
	VariantID *string   `json:"variantId,omitempty"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
}
