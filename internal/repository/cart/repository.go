package cart

import (
	"context"

	"storefront/internal/domain"
)

type AddLineInput struct {
	UserID    string
	ProductID string
	VariantID *string
	Quantity  int
}

// Repository persists a user's cart lines. Lines for the same product and
// variant are merged by summing quantities.
type Repository interface {
	List(ctx context.Context, userID string) ([]domain.CartLine, error)
	AddLine(ctx context.Context, in AddLineInput) (*domain.CartLine, error)
	SetQuantity(ctx context.Context, userID, lineID string, quantity int) (*domain.CartLine, error)
	RemoveLine(ctx context.Context, userID, lineID string) error
	Clear(ctx context.Context, userID string) error
}
