package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"storefront/internal/domain"
	"storefront/internal/logging"
	couponsvc "storefront/internal/service/coupon"
)

type ProductSaver interface {
	Save(ctx context.Context, p domain.Product) (*domain.Product, error)
}

type CouponCreator interface {
	Create(ctx context.Context, in couponsvc.CreateInput) (*domain.Coupon, error)
}

// Apply inserts demo products and coupons for manual testing. Products are
// upserted by slug and existing coupon codes are left untouched, so it can
// be run repeatedly.
func Apply(ctx context.Context, products ProductSaver, coupons CouponCreator, logger *zap.Logger) error {
	logger = logging.OrNop(logger)
	for _, p := range demoProducts() {
		if _, err := products.Save(ctx, p); err != nil {
			return fmt.Errorf("save product %s: %w", p.Slug, err)
		}
		logger.Info("seeded product", zap.String("slug", p.Slug))
	}
	for _, c := range demoCoupons() {
		_, err := coupons.Create(ctx, c)
		switch {
		case errors.Is(err, domain.ErrConflict):
			logger.Info("coupon already present", zap.String("code", c.Code))
		case err != nil:
			return fmt.Errorf("create coupon %s: %w", c.Code, err)
		default:
			logger.Info("seeded coupon", zap.String("code", c.Code))
		}
	}
	return nil
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func ptr[T any](v T) *T { return &v }

func demoProducts() []domain.Product {
	return []domain.Product{
		{
			Slug:        "masala-chai",
			Name:        "Masala Chai",
			Description: "Assam black tea blended with whole spices",
			Price:       dec("249.00"),
			Stock:       100,
			IsActive:    true,
			Variants: []domain.Variant{
				{
					SKU:           "CHAI-100G",
					Title:         "100 g",
					Price:         dec("249.00"),
					OriginalPrice: ptr(dec("299.00")),
					Stock:         60,
					IsActive:      true,
					CustomFields:  []domain.CustomField{{Key: "Weight", Value: "100 g"}, {Key: "Caffeine", Value: "Medium"}},
				},
				{
					SKU:          "CHAI-250G",
					Title:        "250 g",
					Price:        dec("549.00"),
					Stock:        40,
					IsActive:     true,
					CustomFields: []domain.CustomField{{Key: "Weight", Value: "250 g"}, {Key: "Caffeine", Value: "Medium"}},
				},
			},
		},
		{
			Slug:        "darjeeling-first-flush",
			Name:        "Darjeeling First Flush",
			Description: "Light, floral spring harvest",
			Price:       dec("649.00"),
			Stock:       25,
			IsActive:    true,
		},
		{
			Slug:        "tea-infuser",
			Name:        "Steel Tea Infuser",
			Description: "Fine mesh infuser for loose leaf tea",
			Price:       dec("199.00"),
			Stock:       80,
			IsActive:    true,
		},
	}
}

func demoCoupons() []couponsvc.CreateInput {
	return []couponsvc.CreateInput{
		{
			Code:                  "WELCOME10",
			Description:           "10% off your first order",
			DiscountType:          string(domain.DiscountPercentage),
			DiscountValue:         dec("10"),
			MaximumDiscountAmount: ptr(dec("200")),
		},
		{
			Code:               "FLAT100",
			Description:        "100 off orders above 999",
			DiscountType:       string(domain.DiscountFixed),
			DiscountValue:      dec("100"),
			MinimumOrderAmount: dec("999"),
			UsageLimit:         ptr(500),
		},
	}
}
