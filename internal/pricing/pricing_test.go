package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(v string) *string {
	return &v
}

func intPtr(v int) *int {
	return &v
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func testCatalog() Catalog {
	return NewCatalog([]domain.Product{
		{
			ID:       "whey",
			Name:     "Whey Protein",
			Price:    dec("2499.00"),
			IsActive: true,
			Variants: []domain.Variant{
				{ID: "whey-1kg", ProductID: "whey", Title: "1kg Chocolate", Price: dec("1999.50"), OriginalPrice: decPtr("2499.00"), IsActive: true},
				{ID: "whey-old", ProductID: "whey", Title: "Retired", Price: dec("10"), IsActive: false},
			},
		},
		{ID: "creatine", Name: "Creatine", Price: dec("799.99"), IsActive: true},
		{ID: "gone", Name: "Delisted", Price: dec("100"), IsActive: false},
	})
}

func TestResolveUnitPrice_VariantOverridesProduct(t *testing.T) {
	c := testCatalog()

	pl, err := c.ResolveUnitPrice(Line{ProductID: "whey", VariantID: strPtr("whey-1kg"), Quantity: 1})
	require.NoError(t, err)
	assert.True(t, pl.UnitPrice.Equal(dec("1999.50")), "got %s", pl.UnitPrice)
	assert.Equal(t, "1kg Chocolate", pl.VariantName)

	pl, err = c.ResolveUnitPrice(Line{ProductID: "whey", Quantity: 1})
	require.NoError(t, err)
	assert.True(t, pl.UnitPrice.Equal(dec("2499")))
}

func TestResolveUnitPrice_Unresolvable(t *testing.T) {
	c := testCatalog()
	cases := map[string]Line{
		"missing product":          {ProductID: "nope", Quantity: 1},
		"inactive product":         {ProductID: "gone", Quantity: 1},
		"missing variant":          {ProductID: "whey", VariantID: strPtr("nope"), Quantity: 1},
		"inactive variant":         {ProductID: "whey", VariantID: strPtr("whey-old"), Quantity: 1},
		"variant of other product": {ProductID: "creatine", VariantID: strPtr("whey-1kg"), Quantity: 1},
	}
	for name, line := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.ResolveUnitPrice(line)
			assert.True(t, errors.Is(err, ErrLineUnresolvable), "got %v", err)
		})
	}
}

func TestPriceLines_ExcludesInvalidLines(t *testing.T) {
	c := testCatalog()
	priced, invalid := c.PriceLines([]Line{
		{ProductID: "creatine", Quantity: 2},
		{ProductID: "nope", Quantity: 1},
		{ProductID: "creatine", Quantity: 0},
	})
	require.Len(t, priced, 1)
	require.Len(t, invalid, 2)
	assert.True(t, ComputeSubtotal(priced).Equal(dec("1599.98")))
}

func TestComputeSubtotal(t *testing.T) {
	assert.True(t, ComputeSubtotal(nil).IsZero())

	lines := []PricedLine{
		{Line: Line{Quantity: 3}, UnitPrice: dec("0.10")},
		{Line: Line{Quantity: 7}, UnitPrice: dec("0.20")},
	}
	assert.Equal(t, "1.7", ComputeSubtotal(lines).String())
}

func TestComputeSubtotal_MonotonicInQuantity(t *testing.T) {
	prev := decimal.Zero
	for qty := 1; qty <= 50; qty++ {
		got := ComputeSubtotal([]PricedLine{{Line: Line{Quantity: qty}, UnitPrice: dec("33.33")}})
		assert.True(t, got.GreaterThanOrEqual(prev), "qty=%d got %s prev %s", qty, got, prev)
		assert.True(t, got.Equal(dec("33.33").Mul(decimal.NewFromInt(int64(qty)))))
		prev = got
	}
}

var evalNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func baseCoupon() domain.Coupon {
	return domain.Coupon{
		ID:                 "c1",
		Code:               "SAVE10",
		DiscountType:       domain.DiscountPercentage,
		DiscountValue:      dec("10"),
		MinimumOrderAmount: decimal.Zero,
		IsActive:           true,
		ValidFrom:          evalNow.Add(-24 * time.Hour),
	}
}

func reasonOf(t *testing.T, err error) CouponReason {
	t.Helper()
	var ce *CouponError
	require.True(t, errors.As(err, &ce), "expected CouponError, got %v", err)
	return ce.Reason
}

func TestEvaluateCoupon_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *domain.Coupon)
		subtotal string
		want     CouponReason
	}{
		{"inactive", func(c *domain.Coupon) { c.IsActive = false }, "1000", ReasonInactive},
		{"not yet valid", func(c *domain.Coupon) { c.ValidFrom = evalNow.Add(time.Microsecond) }, "1000", ReasonNotYetValid},
		{"expired", func(c *domain.Coupon) {
			until := evalNow.Add(-time.Microsecond)
			c.ValidUntil = &until
		}, "1000", ReasonExpired},
		{"below minimum", func(c *domain.Coupon) { c.MinimumOrderAmount = dec("100") }, "50", ReasonBelowMinimum},
		{"usage limit reached", func(c *domain.Coupon) {
			c.UsageLimit = intPtr(1)
			c.UsedCount = 1
		}, "100000", ReasonUsageLimitReached},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := baseCoupon()
			tc.mutate(&c)
			discount, err := EvaluateCoupon(&c, dec(tc.subtotal), evalNow)
			assert.Equal(t, tc.want, reasonOf(t, err))
			assert.True(t, discount.IsZero())
		})
	}
}

func TestEvaluateCoupon_NotFound(t *testing.T) {
	_, err := EvaluateCoupon(nil, dec("100"), evalNow)
	assert.Equal(t, ReasonNotFound, reasonOf(t, err))
}

func TestEvaluateCoupon_InclusiveBoundaries(t *testing.T) {
	c := baseCoupon()
	until := evalNow
	c.ValidUntil = &until
	c.ValidFrom = evalNow
	c.MinimumOrderAmount = dec("100")

	discount, err := EvaluateCoupon(&c, dec("100"), evalNow)
	require.NoError(t, err)
	assert.True(t, discount.Equal(dec("10")))

	_, err = EvaluateCoupon(&c, dec("100"), evalNow.Add(time.Microsecond))
	assert.Equal(t, ReasonExpired, reasonOf(t, err))
}

func TestEvaluateCoupon_Discounts(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *domain.Coupon)
		subtotal string
		want     string
	}{
		{"percentage", func(c *domain.Coupon) {}, "1000", "100"},
		{"percentage capped by maximum", func(c *domain.Coupon) { c.MaximumDiscountAmount = decPtr("75") }, "1000", "75"},
		{"fixed", func(c *domain.Coupon) {
			c.DiscountType = domain.DiscountFixed
			c.DiscountValue = dec("150")
		}, "1000", "150"},
		{"fixed clamped to subtotal", func(c *domain.Coupon) {
			c.Code = "SAVE500"
			c.DiscountType = domain.DiscountFixed
			c.DiscountValue = dec("500")
		}, "200", "200"},
		{"percentage keeps precision", func(c *domain.Coupon) { c.DiscountValue = dec("12.5") }, "99.99", "12.49875"},
		{"under limit", func(c *domain.Coupon) {
			c.UsageLimit = intPtr(2)
			c.UsedCount = 1
		}, "10", "1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := baseCoupon()
			tc.mutate(&c)
			discount, err := EvaluateCoupon(&c, dec(tc.subtotal), evalNow)
			require.NoError(t, err)
			assert.True(t, discount.Equal(dec(tc.want)), "want %s got %s", tc.want, discount)
		})
	}
}

func TestEvaluateCoupon_NeverExceedsSubtotalOrMaximum(t *testing.T) {
	for _, value := range []string{"0", "5", "50", "100", "250", "999999"} {
		for _, typ := range []domain.DiscountType{domain.DiscountPercentage, domain.DiscountFixed} {
			for _, subtotal := range []string{"0", "0.01", "49.99", "500", "12345.67"} {
				c := baseCoupon()
				c.DiscountType = typ
				c.DiscountValue = dec(value)
				c.MaximumDiscountAmount = decPtr("300")
				discount, err := EvaluateCoupon(&c, dec(subtotal), evalNow)
				require.NoError(t, err)
				assert.True(t, discount.LessThanOrEqual(dec(subtotal)), "%s %s %s -> %s", typ, value, subtotal, discount)
				assert.True(t, discount.LessThanOrEqual(dec("300")))
				assert.False(t, discount.IsNegative())
			}
		}
	}
}

func TestEvaluateCoupon_IsPure(t *testing.T) {
	c := baseCoupon()
	c.UsageLimit = intPtr(5)
	c.UsedCount = 4
	before := c

	first, err1 := EvaluateCoupon(&c, dec("640"), evalNow)
	second, err2 := EvaluateCoupon(&c, dec("640"), evalNow)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.True(t, first.Equal(second))
	assert.Equal(t, before, c)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "SAVE10", NormalizeCode("  save10 "))
	assert.Equal(t, "SAVE10", NormalizeCode("ｓａｖｅ１０"))
	assert.Equal(t, "", NormalizeCode("   "))
}

func TestComputeShipping(t *testing.T) {
	p := DefaultShippingPolicy
	assert.True(t, p.ComputeShipping(dec("0")).Equal(dec("50")))
	assert.True(t, p.ComputeShipping(dec("500")).Equal(dec("50")), "threshold itself is not free")
	assert.True(t, p.ComputeShipping(dec("500.01")).IsZero())
}

func TestComputeTotal_NeverNegative(t *testing.T) {
	amounts := []string{"0", "0.01", "50", "199.99", "200", "1000"}
	for _, s := range amounts {
		for _, d := range amounts {
			for _, sh := range []string{"0", "50"} {
				total := ComputeTotal(dec(s), dec(d).Mul(decimal.NewFromInt(3)), dec(sh))
				assert.False(t, total.IsNegative(), "%s - %s + %s", s, d, sh)
			}
		}
	}
	assert.True(t, ComputeTotal(dec("100"), dec("10"), dec("5")).Equal(dec("95")))
}

func TestScenarios(t *testing.T) {
	p := DefaultShippingPolicy

	t.Run("ten percent on 1000", func(t *testing.T) {
		c := baseCoupon()
		lines := []PricedLine{{Line: Line{Quantity: 1}, UnitPrice: dec("1000")}}
		discount, err := EvaluateCoupon(&c, ComputeSubtotal(lines), evalNow)
		require.NoError(t, err)
		q := p.Assemble(lines, discount)
		assert.Equal(t, "100", q.Discount.String())
		assert.True(t, q.Shipping.IsZero())
		assert.Equal(t, "900", q.Total.String())
	})

	t.Run("fixed 500 on 200", func(t *testing.T) {
		c := baseCoupon()
		c.Code = "SAVE500"
		c.DiscountType = domain.DiscountFixed
		c.DiscountValue = dec("500")
		lines := []PricedLine{{Line: Line{Quantity: 2}, UnitPrice: dec("100")}}
		discount, err := EvaluateCoupon(&c, ComputeSubtotal(lines), evalNow)
		require.NoError(t, err)
		q := p.Assemble(lines, discount)
		assert.Equal(t, "200", q.Discount.String())
		assert.Equal(t, "50", q.Total.String())
	})

	t.Run("below minimum leaves total undiscounted", func(t *testing.T) {
		c := baseCoupon()
		c.MinimumOrderAmount = dec("100")
		lines := []PricedLine{{Line: Line{Quantity: 1}, UnitPrice: dec("50")}}
		_, err := EvaluateCoupon(&c, ComputeSubtotal(lines), evalNow)
		assert.Equal(t, ReasonBelowMinimum, reasonOf(t, err))
		q := p.Assemble(lines, decimal.Zero)
		assert.Equal(t, "100", q.Total.String())
	})

	t.Run("empty cart", func(t *testing.T) {
		q := p.Assemble(nil, decimal.Zero)
		assert.True(t, q.Subtotal.IsZero())
		assert.Equal(t, "50", q.Total.String())
	})
}

func TestAssemble_RoundsDiscountAndKeepsIdentity(t *testing.T) {
	lines := []PricedLine{{Line: Line{Quantity: 1}, UnitPrice: dec("99.99")}}
	q := DefaultShippingPolicy.Assemble(lines, dec("12.49875"))
	assert.Equal(t, "12.5", q.Discount.String())
	assert.True(t, q.Total.Equal(q.Subtotal.Sub(q.Discount).Add(q.Shipping)))
}
