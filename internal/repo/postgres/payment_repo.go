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

var (
	ErrPaymentNotFound = errors.New("payment not found")
	ErrTxRefConflict   = errors.New("tx_ref already exists")
)

type PaymentRepo struct {
	pool *pgxpool.Pool
}

type PaymentRecord struct {
	ID        int64
	SellerID  int64
	ProductID *int64
	TxRef     string
	Kind      string
	PlanType  string
	Amount    int64
	Currency  string
	Status    string
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `
id, seller_id, product_id, tx_ref, kind, plan_type, amount, currency, status, expires_at, created_at, updated_at`

func (r *PaymentRepo) CreatePending(ctx context.Context, sellerID int64, productID *int64, txRef, kind, planType string, amount int64, currency string) (PaymentRecord, error) {
	if r.pool == nil {
		return PaymentRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if sellerID <= 0 || amount <= 0 {
		return PaymentRecord{}, fmt.Errorf("invalid pending payment payload")
	}
	txRef = strings.TrimSpace(txRef)
	kind = strings.ToLower(strings.TrimSpace(kind))
	planType = strings.ToLower(strings.TrimSpace(planType))
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if txRef == "" || kind == "" || planType == "" {
		return PaymentRecord{}, fmt.Errorf("invalid pending payment payload")
	}
	if currency == "" {
		currency = "ETB"
	}

	record, err := scanPayment(r.pool.QueryRow(ctx, `
INSERT INTO payments (
	seller_id,
	product_id,
	tx_ref,
	kind,
	plan_type,
	amount,
	currency,
	status,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', NOW(), NOW())
RETURNING`+paymentColumns,
		sellerID, productID, txRef, kind, planType, amount, currency))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return PaymentRecord{}, ErrTxRefConflict
		}
		return PaymentRecord{}, fmt.Errorf("create pending payment: %w", err)
	}

	return record, nil
}

func (r *PaymentRepo) FindByTxRef(ctx context.Context, txRef string) (PaymentRecord, error) {
	if r.pool == nil {
		return PaymentRecord{}, fmt.Errorf("postgres pool is nil")
	}
	txRef = strings.TrimSpace(txRef)
	if txRef == "" {
		return PaymentRecord{}, fmt.Errorf("tx_ref is required")
	}

	record, err := scanPayment(r.pool.QueryRow(ctx, `
SELECT`+paymentColumns+`
FROM payments
WHERE tx_ref = $1
LIMIT 1
`, txRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentRecord{}, ErrPaymentNotFound
		}
		return PaymentRecord{}, fmt.Errorf("find payment by tx_ref: %w", err)
	}

	return record, nil
}

// FindActiveSubscription returns the most recent successful, unexpired
// subscription payment for the seller. Active status is computed on read;
// nothing sweeps subscription rows.
func (r *PaymentRepo) FindActiveSubscription(ctx context.Context, sellerID int64, at time.Time) (PaymentRecord, error) {
	if r.pool == nil {
		return PaymentRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if sellerID <= 0 {
		return PaymentRecord{}, fmt.Errorf("invalid seller id")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	record, err := scanPayment(r.pool.QueryRow(ctx, `
SELECT`+paymentColumns+`
FROM payments
WHERE seller_id = $1
  AND kind = 'subscription'
  AND status = 'success'
  AND expires_at > $2
ORDER BY created_at DESC
LIMIT 1
`, sellerID, at.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentRecord{}, ErrPaymentNotFound
		}
		return PaymentRecord{}, fmt.Errorf("find active subscription: %w", err)
	}

	return record, nil
}

// MarkTerminal applies the single allowed transition out of 'pending'. The
// guard and the write are one conditional UPDATE so two concurrently
// delivered copies of the same event cannot both take effect. When the row
// is already terminal the current record is returned with changed=false.
func (r *PaymentRepo) MarkTerminal(ctx context.Context, txRef, status string, expiresAt *time.Time) (PaymentRecord, bool, error) {
	if r.pool == nil {
		return PaymentRecord{}, false, fmt.Errorf("postgres pool is nil")
	}
	txRef = strings.TrimSpace(txRef)
	status = strings.ToLower(strings.TrimSpace(status))
	if txRef == "" || status == "" || status == "pending" {
		return PaymentRecord{}, false, fmt.Errorf("invalid terminal transition payload")
	}

	record, err := scanPayment(r.pool.QueryRow(ctx, `
UPDATE payments
SET
	status = $2,
	expires_at = COALESCE($3, expires_at),
	updated_at = NOW()
WHERE tx_ref = $1
  AND status = 'pending'
RETURNING`+paymentColumns,
		txRef, status, expiresAt))
	if err == nil {
		return record, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return PaymentRecord{}, false, fmt.Errorf("mark payment terminal: %w", err)
	}

	existing, err := r.FindByTxRef(ctx, txRef)
	if err != nil {
		return PaymentRecord{}, false, err
	}
	return existing, false, nil
}

func scanPayment(row pgx.Row) (PaymentRecord, error) {
	var record PaymentRecord
	if err := row.Scan(
		&record.ID,
		&record.SellerID,
		&record.ProductID,
		&record.TxRef,
		&record.Kind,
		&record.PlanType,
		&record.Amount,
		&record.Currency,
		&record.Status,
		&record.ExpiresAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return PaymentRecord{}, err
	}
	return record, nil
}
