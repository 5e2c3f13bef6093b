package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"storefront/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

const lineColumns = `id::text, user_id, product_id::text, variant_id::text, quantity, created_at`

func (r *postgresRepo) List(ctx context.Context, userID string) ([]domain.CartLine, error) {
	q := `SELECT ` + lineColumns + ` FROM cart_items WHERE user_id = $1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *line)
	}
	return lines, rows.Err()
}

// AddLine merges into an existing line for the same product and variant.
// A merge that would take the line above domain.MaxLineQuantity leaves the
// line unchanged and returns ErrInvalidInput.
func (r *postgresRepo) AddLine(ctx context.Context, in AddLineInput) (*domain.CartLine, error) {
	if in.Quantity < 1 || in.Quantity > domain.MaxLineQuantity {
		return nil, domain.ErrInvalidInput
	}
	q := `
INSERT INTO cart_items (user_id, product_id, variant_id, quantity)
VALUES ($1, $2::uuid, $3::uuid, $4)
ON CONFLICT (user_id, product_id, COALESCE(variant_id, '00000000-0000-0000-0000-000000000000'::uuid))
DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
WHERE cart_items.quantity + EXCLUDED.quantity <= $5
RETURNING ` + lineColumns
	line, err := scanLine(r.pool.QueryRow(ctx, q, in.UserID, in.ProductID, in.VariantID, in.Quantity, domain.MaxLineQuantity))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: quantity may not exceed %d", domain.ErrInvalidInput, domain.MaxLineQuantity)
	}
	return line, err
}

func (r *postgresRepo) SetQuantity(ctx context.Context, userID, lineID string, quantity int) (*domain.CartLine, error) {
	if quantity < 1 || quantity > domain.MaxLineQuantity {
		return nil, domain.ErrInvalidInput
	}
	q := `UPDATE cart_items SET quantity = $3 WHERE user_id = $1 AND id::text = $2 RETURNING ` + lineColumns
	line, err := scanLine(r.pool.QueryRow(ctx, q, userID, lineID, quantity))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return line, err
}

func (r *postgresRepo) RemoveLine(ctx context.Context, userID, lineID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND id::text = $2`, userID, lineID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Clear(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return err
}

func scanLine(row pgx.Row) (*domain.CartLine, error) {
	var line domain.CartLine
	if err := row.Scan(&line.ID, &line.UserID, &line.ProductID, &line.VariantID, &line.Quantity, &line.CreatedAt); err != nil {
		return nil, err
	}
	return &line, nil
}
