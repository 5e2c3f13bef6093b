package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id"`
	Slug        string          `json:"slug"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	IsActive    bool            `json:"isActive"`
	ImageURLs   []string        `json:"imageUrls,omitempty"`
	Variants    []Variant       `json:"variants,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Variant is a purchasable configuration (flavor, size) of a product.
// Price is what the shopper pays; OriginalPrice is shown struck through.
type Variant struct {
	ID            string           `json:"id"`
	ProductID     string           `json:"productId"`
	SKU           string           `json:"sku"`
	Title         string           `json:"title"`
	Price         decimal.Decimal  `json:"price"`
	OriginalPrice *decimal.Decimal `json:"originalPrice,omitempty"`
	Stock         int              `json:"stock"`
	IsActive      bool             `json:"isActive"`
	CustomFields  []CustomField    `json:"customFields,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// CustomField is one typed key/value attribute attached to a variant.
type CustomField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
