package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
	"storefront/internal/domain"
)

// CouponReason says why a coupon was rejected.
type CouponReason string

const (
	ReasonNotFound          CouponReason = "NotFound"
	ReasonInactive          CouponReason = "Inactive"
	ReasonNotYetValid       CouponReason = "NotYetValid"
	ReasonExpired           CouponReason = "Expired"
	ReasonBelowMinimum      CouponReason = "BelowMinimum"
	ReasonUsageLimitReached CouponReason = "UsageLimitReached"
)

// CouponError is returned when a coupon cannot be applied.
type CouponError struct {
	Code   string
	Reason CouponReason
}

func (e *CouponError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("coupon rejected: %s", e.Reason)
	}
	return fmt.Sprintf("coupon %s rejected: %s", e.Code, e.Reason)
}

var upper = cases.Upper(language.Und)

// NormalizeCode folds full-width characters and upper-cases the code so
// lookups are case-insensitive.
func NormalizeCode(code string) string {
	return upper.String(width.Fold.String(strings.TrimSpace(code)))
}

var hundred = decimal.NewFromInt(100)

// EvaluateCoupon checks whether coupon applies to subtotal at now and
// returns the discount. A nil coupon means the code matched nothing. The
// coupon is not modified; recording usage is the caller's job once the
// order exists.
func EvaluateCoupon(coupon *domain.Coupon, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if coupon == nil {
		return decimal.Zero, &CouponError{Reason: ReasonNotFound}
	}
	reject := func(r CouponReason) (decimal.Decimal, error) {
		return decimal.Zero, &CouponError{Code: coupon.Code, Reason: r}
	}

	switch {
	case !coupon.IsActive:
		return reject(ReasonInactive)
	case now.Before(coupon.ValidFrom):
		return reject(ReasonNotYetValid)
	case coupon.ValidUntil != nil && now.After(*coupon.ValidUntil):
		return reject(ReasonExpired)
	case subtotal.LessThan(coupon.MinimumOrderAmount):
		return reject(ReasonBelowMinimum)
	case coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit:
		return reject(ReasonUsageLimitReached)
	}

	var discount decimal.Decimal
	switch coupon.DiscountType {
	case domain.DiscountPercentage:
		discount = subtotal.Mul(coupon.DiscountValue).Div(hundred)
	default:
		discount = coupon.DiscountValue
	}
	if coupon.MaximumDiscountAmount != nil {
		discount = decimal.Min(discount, *coupon.MaximumDiscountAmount)
	}
	discount = decimal.Min(discount, subtotal)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount, nil
}
