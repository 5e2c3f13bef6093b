package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"storefront/internal/domain"
	"storefront/internal/logging"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("product_repo")}
}

const productColumns = `id::text, slug, name, COALESCE(description, ''), price, stock, is_active, image_urls, created_at`

func (r *postgresRepo) ListActive(ctx context.Context) ([]domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE is_active ORDER BY created_at DESC`
	products, err := r.queryProducts(ctx, q)
	if err != nil {
		r.logger.Error("list products", zap.Error(err))
		return nil, err
	}
	r.logger.Debug("list products", zap.Int("count", len(products)))
	return products, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE id::text = $1`
	products, err := r.queryProducts(ctx, q, id)
	if err != nil {
		r.logger.Error("get product", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if len(products) == 0 {
		return nil, domain.ErrNotFound
	}
	return &products[0], nil
}

func (r *postgresRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := `SELECT ` + productColumns + ` FROM products WHERE id::text = ANY($1::text[])`
	products, err := r.queryProducts(ctx, q, ids)
	if err != nil {
		r.logger.Error("get products", zap.Strings("ids", ids), zap.Error(err))
		return nil, err
	}
	return products, nil
}

func (r *postgresRepo) queryProducts(ctx context.Context, q string, args ...any) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		result []domain.Product
		ids    []string
	)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.Price, &p.Stock, &p.IsActive, &p.ImageURLs, &p.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return result, nil
	}

	variants, err := r.variantsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Variants = variants[result[i].ID]
	}
	return result, nil
}

func (r *postgresRepo) variantsFor(ctx context.Context, productIDs []string) (map[string][]domain.Variant, error) {
	const q = `
SELECT id::text, product_id::text, sku, title, price, original_price, stock, is_active, custom_fields, created_at
FROM product_variants
WHERE product_id::text = ANY($1::text[])
ORDER BY price ASC, created_at ASC
`
	rows, err := r.pool.Query(ctx, q, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.Variant, len(productIDs))
	for rows.Next() {
		var (
			v        domain.Variant
			original decimal.NullDecimal
		)
		if err := rows.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Title, &v.Price, &original, &v.Stock, &v.IsActive, &v.CustomFields, &v.CreatedAt); err != nil {
			return nil, err
		}
		if original.Valid {
			v.OriginalPrice = &original.Decimal
		}
		out[v.ProductID] = append(out[v.ProductID], v)
	}
	return out, rows.Err()
}

// Upsert inserts or updates a product by slug and its variants by SKU in
// one transaction.
func (r *postgresRepo) Upsert(ctx context.Context, product domain.Product) (*domain.Product, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const q = `
INSERT INTO products (slug, name, description, price, stock, is_active, image_urls)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, COALESCE($7, '[]'::jsonb))
ON CONFLICT (slug) DO UPDATE SET
    name = EXCLUDED.name,
    description = EXCLUDED.description,
    price = EXCLUDED.price,
    stock = EXCLUDED.stock,
    is_active = EXCLUDED.is_active,
    image_urls = EXCLUDED.image_urls
RETURNING id::text, created_at
`
	res := product
	imageURLs := product.ImageURLs
	if imageURLs == nil {
		imageURLs = []string{}
	}
	if err := tx.QueryRow(ctx, q,
		product.Slug,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.IsActive,
		imageURLs,
	).Scan(&res.ID, &res.CreatedAt); err != nil {
		r.logger.Error("upsert product", zap.String("slug", product.Slug), zap.Error(err))
		return nil, err
	}

	res.Variants = make([]domain.Variant, 0, len(product.Variants))
	for _, v := range product.Variants {
		saved, err := upsertVariant(ctx, tx, res.ID, v)
		if err != nil {
			return nil, fmt.Errorf("upsert variant %s: %w", v.SKU, err)
		}
		res.Variants = append(res.Variants, saved)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Info("upserted product", zap.String("slug", res.Slug), zap.String("id", res.ID), zap.Int("variants", len(res.Variants)))
	return &res, nil
}

func upsertVariant(ctx context.Context, tx pgx.Tx, productID string, v domain.Variant) (domain.Variant, error) {
	const q = `
INSERT INTO product_variants (product_id, sku, title, price, original_price, stock, is_active, custom_fields)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (sku) DO UPDATE SET
    title = EXCLUDED.title,
    price = EXCLUDED.price,
    original_price = EXCLUDED.original_price,
    stock = EXCLUDED.stock,
    is_active = EXCLUDED.is_active,
    custom_fields = EXCLUDED.custom_fields
WHERE product_variants.product_id = EXCLUDED.product_id
RETURNING id::text, created_at
`
	var original decimal.NullDecimal
	if v.OriginalPrice != nil {
		original = decimal.NewNullDecimal(*v.OriginalPrice)
	}
	fields := v.CustomFields
	if fields == nil {
		fields = []domain.CustomField{}
	}
	v.ProductID = productID
	err := tx.QueryRow(ctx, q, productID, v.SKU, v.Title, v.Price, original, v.Stock, v.IsActive, fields).Scan(&v.ID, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Variant{}, fmt.Errorf("%w: sku %s belongs to another product", domain.ErrConflict, v.SKU)
	}
	return v, err
}
