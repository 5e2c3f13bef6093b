package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

type Coupon struct {
	ID                    string           `json:"id"`
	Code                  string           `json:"code"`
	Description           string           `json:"description,omitempty"`
	DiscountType          DiscountType     `json:"discountType"`
	DiscountValue         decimal.Decimal  `json:"discountValue"`
	MinimumOrderAmount    decimal.Decimal  `json:"minimumOrderAmount"`
	MaximumDiscountAmount *decimal.Decimal `json:"maximumDiscountAmount,omitempty"`
	UsageLimit            *int             `json:"usageLimit,omitempty"`
	UsedCount             int              `json:"usedCount"`
	IsActive              bool             `json:"isActive"`
	ValidFrom             time.Time        `json:"validFrom"`
	ValidUntil            *time.Time       `json:"validUntil,omitempty"`
	CreatedAt             time.Time        `json:"createdAt"`
}

// CouponUsage is the audit row written when an order redeems a coupon.
type CouponUsage struct {
	ID             string          `json:"id"`
	CouponID       string          `json:"couponId"`
	OrderID        string          `json:"orderId"`
	UserID         *string         `json:"userId,omitempty"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	UsedAt         time.Time       `json:"usedAt"`
}
