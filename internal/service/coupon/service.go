package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	"storefront/internal/pricing"
)

type couponRepo interface {
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
	List(ctx context.Context) ([]domain.Coupon, error)
	Create(ctx context.Context, c domain.Coupon) (*domain.Coupon, error)
	SetActive(ctx context.Context, id string, active bool) (*domain.Coupon, error)
}

type Service struct {
	repo couponRepo
	now  func() time.Time
}

func New(repo couponRepo, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, now: func() time.Time { return now().UTC() }}
}

// Applied is a coupon that passed evaluation against a subtotal.
type Applied struct {
	Coupon   domain.Coupon
	Discount decimal.Decimal
}

// Evaluate looks code up and checks it against subtotal. Rejections are
// returned as *pricing.CouponError; other errors come from storage.
func (s *Service) Evaluate(ctx context.Context, code string, subtotal decimal.Decimal) (*Applied, error) {
	normalized := pricing.NormalizeCode(code)
	if normalized == "" {
		return nil, &pricing.CouponError{Reason: pricing.ReasonNotFound}
	}
	c, err := s.repo.GetByCode(ctx, normalized)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		c = nil
	}
	discount, err := pricing.EvaluateCoupon(c, subtotal, s.now())
	if err != nil {
		var ce *pricing.CouponError
		if errors.As(err, &ce) && ce.Code == "" {
			ce.Code = normalized
		}
		return nil, err
	}
	return &Applied{Coupon: *c, Discount: discount}, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Coupon, error) {
	return s.repo.List(ctx)
}

type CreateInput struct {
	Code                  string           `json:"code"`
	Description           string           `json:"description"`
	DiscountType          string           `json:"discountType"`
	DiscountValue         decimal.Decimal  `json:"discountValue"`
	MinimumOrderAmount    decimal.Decimal  `json:"minimumOrderAmount"`
	MaximumDiscountAmount *decimal.Decimal `json:"maximumDiscountAmount"`
	UsageLimit            *int             `json:"usageLimit"`
	ValidFrom             *time.Time       `json:"validFrom"`
	ValidUntil            *time.Time       `json:"validUntil"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.Coupon, error) {
	c := domain.Coupon{
		Code:                  pricing.NormalizeCode(in.Code),
		Description:           strings.TrimSpace(in.Description),
		DiscountType:          domain.DiscountType(strings.ToLower(strings.TrimSpace(in.DiscountType))),
		DiscountValue:         in.DiscountValue,
		MinimumOrderAmount:    in.MinimumOrderAmount,
		MaximumDiscountAmount: in.MaximumDiscountAmount,
		UsageLimit:            in.UsageLimit,
		IsActive:              true,
		ValidUntil:            in.ValidUntil,
	}
	if in.ValidFrom != nil {
		c.ValidFrom = in.ValidFrom.UTC()
	} else {
		c.ValidFrom = s.now()
	}
	if err := validate(c); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, c)
}

func (s *Service) Deactivate(ctx context.Context, id string) (*domain.Coupon, error) {
	return s.repo.SetActive(ctx, id, false)
}

func validate(c domain.Coupon) error {
	switch {
	case c.Code == "":
		return fmt.Errorf("%w: code is required", domain.ErrInvalidInput)
	case !c.DiscountType.Valid():
		return fmt.Errorf("%w: discountType must be percentage or fixed", domain.ErrInvalidInput)
	case c.DiscountValue.IsNegative():
		return fmt.Errorf("%w: discountValue must not be negative", domain.ErrInvalidInput)
	case c.DiscountType == domain.DiscountPercentage && c.DiscountValue.GreaterThan(decimal.NewFromInt(100)):
		return fmt.Errorf("%w: percentage discount above 100", domain.ErrInvalidInput)
	case c.MinimumOrderAmount.IsNegative():
		return fmt.Errorf("%w: minimumOrderAmount must not be negative", domain.ErrInvalidInput)
	case c.MaximumDiscountAmount != nil && c.MaximumDiscountAmount.IsNegative():
		return fmt.Errorf("%w: maximumDiscountAmount must not be negative", domain.ErrInvalidInput)
	case c.UsageLimit != nil && *c.UsageLimit < 1:
		return fmt.Errorf("%w: usageLimit must be positive", domain.ErrInvalidInput)
	case c.ValidUntil != nil && c.ValidUntil.Before(c.ValidFrom):
		return fmt.Errorf("%w: validUntil precedes validFrom", domain.ErrInvalidInput)
	}
	return nil
}
