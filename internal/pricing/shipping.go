package pricing

import "github.com/shopspring/decimal"

// ShippingPolicy charges a flat fee unless the subtotal is strictly above
// the free-shipping threshold.
type ShippingPolicy struct {
	FreeThreshold decimal.Decimal
	FlatFee       decimal.Decimal
}

// DefaultShippingPolicy is ₹50 shipping, free above ₹500.
var DefaultShippingPolicy = ShippingPolicy{
	FreeThreshold: decimal.NewFromInt(500),
	FlatFee:       decimal.NewFromInt(50),
}

// ComputeShipping returns the shipping fee for a pre-discount subtotal.
func (p ShippingPolicy) ComputeShipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(p.FreeThreshold) {
		return decimal.Zero
	}
	return p.FlatFee
}
