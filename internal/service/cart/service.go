package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	"storefront/internal/pricing"
	cartrepo "storefront/internal/repository/cart"
	couponsvc "storefront/internal/service/coupon"
)

// ErrItemUnavailable is returned when a product or variant cannot be
// added because it does not exist or is no longer sold.
var ErrItemUnavailable = errors.New("cart: item unavailable")

type cartRepo interface {
	List(ctx context.Context, userID string) ([]domain.CartLine, error)
	AddLine(ctx context.Context, in cartrepo.AddLineInput) (*domain.CartLine, error)
	SetQuantity(ctx context.Context, userID, lineID string, quantity int) (*domain.CartLine, error)
	RemoveLine(ctx context.Context, userID, lineID string) error
	Clear(ctx context.Context, userID string) error
}

type catalogLoader interface {
	Catalog(ctx context.Context, productIDs []string) (pricing.Catalog, error)
}

type couponEvaluator interface {
	Evaluate(ctx context.Context, code string, subtotal decimal.Decimal) (*couponsvc.Applied, error)
}

type Service struct {
	repo     cartRepo
	catalog  catalogLoader
	coupons  couponEvaluator
	shipping pricing.ShippingPolicy
	currency string
}

func New(repo cartRepo, catalog catalogLoader, coupons couponEvaluator, shipping pricing.ShippingPolicy, currency string) *Service {
	return &Service{repo: repo, catalog: catalog, coupons: coupons, shipping: shipping, currency: currency}
}

type AddItemInput struct {
	ProductID string  `json:"productId"`
	VariantID *string `json:"variantId,omitempty"`
	Quantity  int     `json:"quantity"`
}

// ViewLine is a cart line priced against the live catalog.
type ViewLine struct {
	domain.CartLine
	ProductName string          `json:"productName"`
	VariantName string          `json:"variantName,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

type AppliedCoupon struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
}

type RejectedCoupon struct {
	Code   string               `json:"code"`
	Reason pricing.CouponReason `json:"reason"`
}

// View is the priced cart. Lines whose product or variant is gone are
// listed under Unavailable and excluded from every amount.
type View struct {
	Lines          []ViewLine        `json:"lines"`
	Unavailable    []domain.CartLine `json:"unavailable"`
	Subtotal       decimal.Decimal   `json:"subtotal"`
	Discount       decimal.Decimal   `json:"discount"`
	Shipping       decimal.Decimal   `json:"shipping"`
	Total          decimal.Decimal   `json:"total"`
	Currency       string            `json:"currency"`
	Coupon         *AppliedCoupon    `json:"coupon,omitempty"`
	RejectedCoupon *RejectedCoupon   `json:"rejectedCoupon,omitempty"`
}

// View prices the user's cart and previews couponCode when given. A
// rejected coupon is reported on the view rather than failing the read.
func (s *Service) View(ctx context.Context, userID, couponCode string) (*View, error) {
	lines, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	catalog, err := s.catalog.Catalog(ctx, ids)
	if err != nil {
		return nil, err
	}

	view := &View{Lines: []ViewLine{}, Unavailable: []domain.CartLine{}, Currency: s.currency}
	priced := make([]pricing.PricedLine, 0, len(lines))
	for _, l := range lines {
		pl, err := catalog.ResolveUnitPrice(pricing.Line{ProductID: l.ProductID, VariantID: l.VariantID, Quantity: l.Quantity})
		if err != nil {
			view.Unavailable = append(view.Unavailable, l)
			continue
		}
		priced = append(priced, pl)
		view.Lines = append(view.Lines, ViewLine{
			CartLine:    l,
			ProductName: pl.ProductName,
			VariantName: pl.VariantName,
			UnitPrice:   pl.UnitPrice,
			LineTotal:   pl.Total(),
		})
	}

	discount := decimal.Zero
	if couponCode != "" {
		applied, err := s.coupons.Evaluate(ctx, couponCode, pricing.ComputeSubtotal(priced))
		var ce *pricing.CouponError
		switch {
		case errors.As(err, &ce):
			view.RejectedCoupon = &RejectedCoupon{Code: ce.Code, Reason: ce.Reason}
		case err != nil:
			return nil, err
		default:
			discount = applied.Discount
			view.Coupon = &AppliedCoupon{Code: applied.Coupon.Code}
		}
	}

	quote := s.shipping.Assemble(priced, discount)
	view.Subtotal = quote.Subtotal
	view.Discount = quote.Discount
	view.Shipping = quote.Shipping
	view.Total = quote.Total
	if view.Coupon != nil {
		view.Coupon.Discount = quote.Discount
	}
	return view, nil
}

// AddItem adds quantity units, merging with an existing line for the same
// product and variant.
func (s *Service) AddItem(ctx context.Context, userID string, in AddItemInput) (*domain.CartLine, error) {
	if in.Quantity < 1 || in.Quantity > domain.MaxLineQuantity {
		return nil, fmt.Errorf("%w: quantity must be between 1 and %d", domain.ErrInvalidInput, domain.MaxLineQuantity)
	}
	if in.ProductID == "" {
		return nil, fmt.Errorf("%w: productId is required", domain.ErrInvalidInput)
	}
	catalog, err := s.catalog.Catalog(ctx, []string{in.ProductID})
	if err != nil {
		return nil, err
	}
	if _, err := catalog.ResolveUnitPrice(pricing.Line{ProductID: in.ProductID, VariantID: in.VariantID, Quantity: in.Quantity}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrItemUnavailable, err)
	}
	return s.repo.AddLine(ctx, cartrepo.AddLineInput{
		UserID:    userID,
		ProductID: in.ProductID,
		VariantID: in.VariantID,
		Quantity:  in.Quantity,
	})
}

// UpdateQuantity sets a line's quantity. Zero removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, lineID string, quantity int) (*domain.CartLine, error) {
	switch {
	case quantity < 0 || quantity > domain.MaxLineQuantity:
		return nil, fmt.Errorf("%w: quantity must be between 0 and %d", domain.ErrInvalidInput, domain.MaxLineQuantity)
	case quantity == 0:
		return nil, s.repo.RemoveLine(ctx, userID, lineID)
	}
	return s.repo.SetQuantity(ctx, userID, lineID, quantity)
}

func (s *Service) RemoveItem(ctx context.Context, userID, lineID string) error {
	return s.repo.RemoveLine(ctx, userID, lineID)
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.repo.Clear(ctx, userID)
}
