package coupon

import (
	"context"

	"storefront/internal/domain"
)

// Repository persists coupons. Codes are stored already normalized.
type Repository interface {
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)
	GetByID(ctx context.Context, id string) (*domain.Coupon, error)
	List(ctx context.Context) ([]domain.Coupon, error)
	Create(ctx context.Context, c domain.Coupon) (*domain.Coupon, error)
	SetActive(ctx context.Context, id string, active bool) (*domain.Coupon, error)
}
