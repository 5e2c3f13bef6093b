package order

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

// ErrCouponExhausted is returned by Create when the coupon's usage limit was
// reached by a concurrent redemption. Nothing is written in that case.
var ErrCouponExhausted = errors.New("order: coupon usage limit reached")

// CouponRedemption records the coupon consumed by an order.
type CouponRedemption struct {
	CouponID string
	Amount   decimal.Decimal
}

type CreateInput struct {
	Order  domain.Order
	Coupon *CouponRedemption
	// ClearCartFor empties the user's cart in the same transaction.
	ClearCartFor *string
}

type ListFilter struct {
	Status *domain.OrderStatus
	Limit  int
	Offset int
}

type Repository interface {
	// Create writes the order, its items, the coupon redemption and the cart
	// clear atomically. A reused idempotency key yields domain.ErrConflict.
	Create(ctx context.Context, in CreateInput) (*domain.Order, error)
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	List(ctx context.Context, filter ListFilter) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (*domain.Order, error)
	SetPaymentReference(ctx context.Context, id, reference string) error
	UpdatePaymentByReference(ctx context.Context, reference string, payment domain.PaymentStatus, status *domain.OrderStatus) (*domain.Order, error)
}
