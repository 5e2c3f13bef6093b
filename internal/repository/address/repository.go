package address

import (
	"context"

	"storefront/internal/domain"
)

// Repository persists and fetches saved shipping addresses.
type Repository interface {
	Create(ctx context.Context, a domain.Address) (*domain.Address, error)
	GetByID(ctx context.Context, userID, id string) (*domain.Address, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Address, error)
}
