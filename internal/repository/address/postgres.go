package address

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"storefront/internal/domain"
	"storefront/internal/logging"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepo{pool: pool, logger: logging.OrNop(logger).Named("address_repo")}
}

const addressColumns = `id::text, user_id, full_name, phone, line1, COALESCE(line2, ''), city, state, postal_code, country, is_default, created_at`

// Create stores a, clearing any previous default for the user when a is
// marked default.
func (r *postgresRepo) Create(ctx context.Context, a domain.Address) (*domain.Address, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if a.IsDefault {
		if _, err := tx.Exec(ctx, `UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`, a.UserID); err != nil {
			return nil, err
		}
	}

	country := a.Country
	if country == "" {
		country = "IN"
	}
	q := `
INSERT INTO addresses (user_id, full_name, phone, line1, line2, city, state, postal_code, country, is_default)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10)
RETURNING ` + addressColumns
	saved, err := r.scanAddress(tx.QueryRow(ctx, q,
		a.UserID,
		a.FullName,
		a.Phone,
		a.Line1,
		a.Line2,
		a.City,
		a.State,
		a.PostalCode,
		country,
		a.IsDefault,
	))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, userID, id string) (*domain.Address, error) {
	q := `SELECT ` + addressColumns + ` FROM addresses WHERE user_id = $1 AND id::text = $2 LIMIT 1`
	return r.scanAddress(r.pool.QueryRow(ctx, q, userID, id))
}

func (r *postgresRepo) ListByUser(ctx context.Context, userID string) ([]domain.Address, error) {
	q := `SELECT ` + addressColumns + ` FROM addresses WHERE user_id = $1 ORDER BY is_default DESC, created_at DESC`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Address
	for rows.Next() {
		a, err := r.scanAddress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *postgresRepo) scanAddress(row pgx.Row) (*domain.Address, error) {
	var a domain.Address
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.FullName,
		&a.Phone,
		&a.Line1,
		&a.Line2,
		&a.City,
		&a.State,
		&a.PostalCode,
		&a.Country,
		&a.IsDefault,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("scan address", zap.Error(err))
		return nil, err
	}
	return &a, nil
}
