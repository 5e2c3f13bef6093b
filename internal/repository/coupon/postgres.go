package coupon

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"storefront/internal/domain"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

const couponColumns = `id::text, code, COALESCE(description, ''), discount_type, discount_value, minimum_order_amount,
       maximum_discount_amount, usage_limit, used_count, is_active, valid_from, valid_until, created_at`

func (r *postgresRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	q := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1 LIMIT 1`
	return scanCoupon(r.pool.QueryRow(ctx, q, code))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Coupon, error) {
	q := `SELECT ` + couponColumns + ` FROM coupons WHERE id::text = $1 LIMIT 1`
	return scanCoupon(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) List(ctx context.Context) ([]domain.Coupon, error) {
	q := `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *postgresRepo) Create(ctx context.Context, c domain.Coupon) (*domain.Coupon, error) {
	q := `
INSERT INTO coupons (code, description, discount_type, discount_value, minimum_order_amount,
                     maximum_discount_amount, usage_limit, is_active, valid_from, valid_until)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, COALESCE($9, now()), $10)
RETURNING ` + couponColumns
	var maxDiscount decimal.NullDecimal
	if c.MaximumDiscountAmount != nil {
		maxDiscount = decimal.NewNullDecimal(*c.MaximumDiscountAmount)
	}
	var validFrom *time.Time
	if !c.ValidFrom.IsZero() {
		validFrom = &c.ValidFrom
	}
	saved, err := scanCoupon(r.pool.QueryRow(ctx, q,
		c.Code,
		c.Description,
		string(c.DiscountType),
		c.DiscountValue,
		c.MinimumOrderAmount,
		maxDiscount,
		c.UsageLimit,
		c.IsActive,
		validFrom,
		c.ValidUntil,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return saved, nil
}

func (r *postgresRepo) SetActive(ctx context.Context, id string, active bool) (*domain.Coupon, error) {
	q := `UPDATE coupons SET is_active = $2 WHERE id::text = $1 RETURNING ` + couponColumns
	return scanCoupon(r.pool.QueryRow(ctx, q, id, active))
}

func scanCoupon(row pgx.Row) (*domain.Coupon, error) {
	var (
		c            domain.Coupon
		discountType string
		maxDiscount  decimal.NullDecimal
	)
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.Description,
		&discountType,
		&c.DiscountValue,
		&c.MinimumOrderAmount,
		&maxDiscount,
		&c.UsageLimit,
		&c.UsedCount,
		&c.IsActive,
		&c.ValidFrom,
		&c.ValidUntil,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	c.DiscountType = domain.DiscountType(discountType)
	if maxDiscount.Valid {
		c.MaximumDiscountAmount = &maxDiscount.Decimal
	}
	return &c, nil
}
