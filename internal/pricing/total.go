package pricing

import "github.com/shopspring/decimal"

// ComputeTotal returns max(0, subtotal − discount + shipping).
func ComputeTotal(subtotal, discount, shipping decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(discount).Add(shipping)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// Quote is the full price breakdown of a set of lines.
type Quote struct {
	Lines    []PricedLine
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Assemble builds the quote persisted on an order. The discount is the
// only component that can carry more than two decimals (percentage
// coupons), so it is rounded here and the total is derived from the
// rounded parts; the stored amounts then satisfy the total identity
// exactly.
func (p ShippingPolicy) Assemble(lines []PricedLine, discount decimal.Decimal) Quote {
	subtotal := ComputeSubtotal(lines)
	discount = decimal.Min(discount.Round(2), subtotal)
	shipping := p.ComputeShipping(subtotal)
	return Quote{
		Lines:    lines,
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Total:    ComputeTotal(subtotal, discount, shipping),
	}
}
