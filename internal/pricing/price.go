package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

// ErrLineUnresolvable marks a line whose product or variant cannot be found.
var ErrLineUnresolvable = errors.New("pricing: line cannot be priced")

// Line is a cart line as seen by pricing: what is bought and how many.
type Line struct {
	ProductID string
	VariantID *string
	Quantity  int
}

// PricedLine is a Line with its resolved unit price.
type PricedLine struct {
	Line
	ProductName string
	VariantName string
	UnitPrice   decimal.Decimal
}

// Total returns unit price × quantity.
func (l PricedLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Catalog indexes the products and variants referenced by a set of lines.
// Inactive rows are left out, so lines pointing at them do not resolve.
type Catalog struct {
	products map[string]domain.Product
	variants map[string]domain.Variant
}

// NewCatalog builds a Catalog from products with their variants loaded.
func NewCatalog(products []domain.Product) Catalog {
	c := Catalog{
		products: make(map[string]domain.Product, len(products)),
		variants: make(map[string]domain.Variant),
	}
	for _, p := range products {
		if !p.IsActive {
			continue
		}
		c.products[p.ID] = p
		for _, v := range p.Variants {
			if !v.IsActive {
				continue
			}
			c.variants[v.ID] = v
		}
	}
	return c
}

// ResolveUnitPrice returns the price a shopper pays for one unit of the
// line: the variant's price when a variant is referenced, otherwise the
// product's base price.
func (c Catalog) ResolveUnitPrice(line Line) (PricedLine, error) {
	product, ok := c.products[line.ProductID]
	if !ok {
		return PricedLine{}, fmt.Errorf("%w: product %s", ErrLineUnresolvable, line.ProductID)
	}
	priced := PricedLine{Line: line, ProductName: product.Name, UnitPrice: product.Price}
	if line.VariantID == nil {
		return priced, nil
	}
	variant, ok := c.variants[*line.VariantID]
	if !ok || variant.ProductID != product.ID {
		return PricedLine{}, fmt.Errorf("%w: variant %s", ErrLineUnresolvable, *line.VariantID)
	}
	priced.VariantName = variant.Title
	priced.UnitPrice = variant.Price
	return priced, nil
}

// PriceLines resolves every line. Lines that cannot be priced, or that
// have a quantity below one, are returned separately and never priced at
// zero.
func (c Catalog) PriceLines(lines []Line) (priced []PricedLine, invalid []Line) {
	priced = make([]PricedLine, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			invalid = append(invalid, line)
			continue
		}
		pl, err := c.ResolveUnitPrice(line)
		if err != nil {
			invalid = append(invalid, line)
			continue
		}
		priced = append(priced, pl)
	}
	return priced, invalid
}
