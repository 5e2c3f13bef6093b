package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"storefront/internal/db"
	"storefront/internal/domain"
	"storefront/internal/logging"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("order_repo")}
}

const orderColumns = `id::text, order_number, user_id, guest_name, guest_email, guest_phone, idempotency_key,
       subtotal, discount_amount, shipping_amount, total_amount, currency, coupon_id::text, coupon_code,
       status, payment_status, payment_method, payment_reference, shipping_address, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	o := in.Order
	var guestName, guestEmail, guestPhone *string
	if o.Guest != nil {
		guestName, guestEmail, guestPhone = &o.Guest.Name, &o.Guest.Email, &o.Guest.Phone
	}

	err := db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		const insertOrder = `
INSERT INTO orders (order_number, user_id, guest_name, guest_email, guest_phone, idempotency_key,
                    subtotal, discount_amount, shipping_amount, total_amount, currency, coupon_id, coupon_code,
                    status, payment_status, payment_method, shipping_address)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::uuid, $13, $14, $15, $16, $17)
ON CONFLICT (idempotency_key) DO NOTHING
RETURNING id::text, created_at, updated_at
`
		err := tx.QueryRow(ctx, insertOrder,
			o.OrderNumber,
			o.UserID,
			guestName,
			guestEmail,
			guestPhone,
			o.IdempotencyKey,
			o.Subtotal,
			o.DiscountAmount,
			o.ShippingAmount,
			o.TotalAmount,
			o.Currency,
			o.CouponID,
			o.CouponCode,
			string(o.Status),
			string(o.PaymentStatus),
			string(o.PaymentMethod),
			o.ShippingAddress,
		).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrConflict
		}
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		batch := &pgx.Batch{}
		for _, item := range o.Items {
			batch.Queue(`
INSERT INTO order_items (order_id, product_id, variant_id, product_name, quantity, price)
VALUES ($1::uuid, $2::uuid, $3::uuid, $4, $5, $6)
RETURNING id::text`, o.ID, item.ProductID, item.VariantID, item.ProductName, item.Quantity, item.Price)
		}
		results := tx.SendBatch(ctx, batch)
		for i := range o.Items {
			if err := results.QueryRow().Scan(&o.Items[i].ID); err != nil {
				results.Close()
				return fmt.Errorf("insert order item: %w", err)
			}
			o.Items[i].OrderID = o.ID
		}
		if err := results.Close(); err != nil {
			return err
		}

		if in.Coupon != nil {
			tag, err := tx.Exec(ctx, `
UPDATE coupons SET used_count = used_count + 1
WHERE id::text = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`, in.Coupon.CouponID)
			if err != nil {
				return fmt.Errorf("redeem coupon: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return ErrCouponExhausted
			}
			if _, err := tx.Exec(ctx, `
INSERT INTO coupon_usage (coupon_id, order_id, user_id, discount_amount)
VALUES ($1::uuid, $2::uuid, $3, $4)`, in.Coupon.CouponID, o.ID, o.UserID, in.Coupon.Amount); err != nil {
				return fmt.Errorf("record coupon usage: %w", err)
			}
		}

		if in.ClearCartFor != nil {
			if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, *in.ClearCartFor); err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrConflict) && !errors.Is(err, ErrCouponExhausted) {
			r.logger.Error("create order", zap.String("order_number", o.OrderNumber), zap.Error(err))
		}
		return nil, err
	}
	r.logger.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.String("total", o.TotalAmount.StringFixed(2)),
		zap.Int("items", len(o.Items)),
	)
	return &o, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id::text = $1`, id)
}

func (r *postgresRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1`, key)
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *postgresRepo) List(ctx context.Context, filter ListFilter) ([]domain.Order, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}
	q := `SELECT ` + orderColumns + ` FROM orders
WHERE ($1::text IS NULL OR status = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`
	return r.queryOrders(ctx, q, status, limit, offset)
}

// UpdateStatus moves the order from one status to another. The write only
// applies while the order is still in from; otherwise domain.ErrConflict.
func (r *postgresRepo) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus) (*domain.Order, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE orders SET status = $3, updated_at = now()
WHERE id::text = $1 AND status = $2`, id, string(from), string(to))
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, domain.ErrConflict
	}
	return r.GetByID(ctx, id)
}

// SetPaymentReference attaches a new gateway session to a pending order and
// resets its payment status to pending. Orders that were paid or cancelled
// in the meantime give ErrConflict.
func (r *postgresRepo) SetPaymentReference(ctx context.Context, id, reference string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE orders SET payment_reference = $2, payment_status = 'pending', updated_at = now()
WHERE id::text = $1 AND status = 'pending' AND payment_status IN ('pending', 'failed')`, id, reference)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrConflict
	}
	return nil
}

// UpdatePaymentByReference records a provider outcome. The order status is
// only changed when status is non-nil and the order is still pending.
func (r *postgresRepo) UpdatePaymentByReference(ctx context.Context, reference string, payment domain.PaymentStatus, status *domain.OrderStatus) (*domain.Order, error) {
	var next *string
	if status != nil {
		s := string(*status)
		next = &s
	}
	var id string
	err := r.pool.QueryRow(ctx, `
UPDATE orders SET
    payment_status = $2,
    status = CASE WHEN $3::text IS NOT NULL AND status = 'pending' THEN $3 ELSE status END,
    updated_at = now()
WHERE payment_reference = $1
RETURNING id::text`, reference, string(payment), next).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *postgresRepo) getOne(ctx context.Context, q string, arg any) (*domain.Order, error) {
	orders, err := r.queryOrders(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, domain.ErrNotFound
	}
	return &orders[0], nil
}

func (r *postgresRepo) queryOrders(ctx context.Context, q string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		orders []domain.Order
		ids    []string
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (r *postgresRepo) itemsFor(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id::text, order_id::text, product_id::text, variant_id::text, product_name, quantity, price
FROM order_items
WHERE order_id::text = ANY($1::text[])
ORDER BY product_name ASC`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.VariantID, &it.ProductName, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                                  domain.Order
		guestName, guestEmail, guestPhone  *string
		status, paymentStatus, paymentMeth string
	)
	err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&guestName,
		&guestEmail,
		&guestPhone,
		&o.IdempotencyKey,
		&o.Subtotal,
		&o.DiscountAmount,
		&o.ShippingAmount,
		&o.TotalAmount,
		&o.Currency,
		&o.CouponID,
		&o.CouponCode,
		&status,
		&paymentStatus,
		&paymentMeth,
		&o.PaymentReference,
		&o.ShippingAddress,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if guestEmail != nil {
		o.Guest = &domain.GuestContact{Email: *guestEmail}
		if guestName != nil {
			o.Guest.Name = *guestName
		}
		if guestPhone != nil {
			o.Guest.Phone = *guestPhone
		}
	}
	o.Status = domain.OrderStatus(status)
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	o.PaymentMethod = domain.PaymentMethod(paymentMeth)
	return &o, nil
}
