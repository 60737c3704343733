package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrPromoCodeExists = errors.New("promo code already exists")

type PromoRepo struct {
	pool *pgxpool.Pool
}

type PromoCodeRecord struct {
	Code      string
	OwnerID   int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

func NewPromoRepo(pool *pgxpool.Pool) *PromoRepo {
	return &PromoRepo{pool: pool}
}

// CreateTx inserts the minted code inside the caller's transaction so that
// the counter reset and the code share one commit.
func (r *PromoRepo) CreateTx(ctx context.Context, tx pgx.Tx, code string, ownerID int64, expiresAt time.Time) (PromoCodeRecord, error) {
	if tx == nil {
		return PromoCodeRecord{}, fmt.Errorf("transaction is required")
	}
	code = strings.TrimSpace(code)
	if code == "" || ownerID <= 0 || expiresAt.IsZero() {
		return PromoCodeRecord{}, fmt.Errorf("invalid promo code payload")
	}

	var record PromoCodeRecord
	err := tx.QueryRow(ctx, `
INSERT INTO promo_codes (code, owner_id, expires_at, created_at)
VALUES ($1, $2, $3, NOW())
RETURNING code, owner_id, expires_at, created_at
`, code, ownerID, expiresAt.UTC()).Scan(
		&record.Code,
		&record.OwnerID,
		&record.ExpiresAt,
		&record.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return PromoCodeRecord{}, ErrPromoCodeExists
		}
		return PromoCodeRecord{}, fmt.Errorf("create promo code: %w", err)
	}

	return record, nil
}

func (r *PromoRepo) ListActiveByOwner(ctx context.Context, ownerID int64, at time.Time) ([]PromoCodeRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if ownerID <= 0 {
		return nil, fmt.Errorf("invalid owner id")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	rows, err := r.pool.Query(ctx, `
SELECT code, owner_id, expires_at, created_at
FROM promo_codes
WHERE owner_id = $1
  AND expires_at > $2
ORDER BY created_at DESC
`, ownerID, at.UTC())
	if err != nil {
		return nil, fmt.Errorf("list active promo codes: %w", err)
	}
	defer rows.Close()

	var records []PromoCodeRecord
	for rows.Next() {
		var record PromoCodeRecord
		if err := rows.Scan(&record.Code, &record.OwnerID, &record.ExpiresAt, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan promo code row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promo code rows: %w", err)
	}

	return records, nil
}
