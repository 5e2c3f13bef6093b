package pricing

import "github.com/shopspring/decimal"

// ComputeSubtotal sums unit price × quantity over the priced lines.
// Amounts stay exact; rounding is left to presentation.
func ComputeSubtotal(lines []PricedLine) decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Total())
	}
	return subtotal
}
