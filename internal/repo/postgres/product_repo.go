package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrProductNotFound = errors.New("product not found")

// ProductRepo touches only the promotion feature flags of the catalog's
// product rows. Everything else about products belongs to the catalog
// service.
type ProductRepo struct {
	pool *pgxpool.Pool
}

type ProductRecord struct {
	ID            int64
	SellerID      int64
	Name          string
	IsFeatured    bool
	FeaturedUntil *time.Time
}

func NewProductRepo(pool *pgxpool.Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

func (r *ProductRepo) FindByID(ctx context.Context, productID int64) (ProductRecord, error) {
	if r.pool == nil {
		return ProductRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if productID <= 0 {
		return ProductRecord{}, fmt.Errorf("invalid product id")
	}

	var record ProductRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, seller_id, name, is_featured, featured_until
FROM products
WHERE id = $1
LIMIT 1
`, productID).Scan(
		&record.ID,
		&record.SellerID,
		&record.Name,
		&record.IsFeatured,
		&record.FeaturedUntil,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductRecord{}, ErrProductNotFound
		}
		return ProductRecord{}, fmt.Errorf("find product by id: %w", err)
	}

	return record, nil
}

func (r *ProductRepo) SetFeatured(ctx context.Context, productID int64, until time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if productID <= 0 || until.IsZero() {
		return fmt.Errorf("invalid feature payload")
	}

	result, err := r.pool.Exec(ctx, `
UPDATE products
SET
	is_featured = TRUE,
	featured_until = $2,
	updated_at = NOW()
WHERE id = $1
`, productID, until.UTC())
	if err != nil {
		return fmt.Errorf("set product featured: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

// ClearExpiredFeatures flips every elapsed feature window off in one bulk
// statement. Safe to run concurrently with itself and with SetFeatured: a
// product re-featured between ticks carries a future featured_until and is
// left alone.
func (r *ProductRepo) ClearExpiredFeatures(ctx context.Context, now time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	result, err := r.pool.Exec(ctx, `
UPDATE products
SET
	is_featured = FALSE,
	featured_until = NULL,
	updated_at = NOW()
WHERE is_featured = TRUE
  AND featured_until <= $1
`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("clear expired product features: %w", err)
	}

	return result.RowsAffected(), nil
}
