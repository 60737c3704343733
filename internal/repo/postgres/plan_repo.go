package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrPlanNotFound = errors.New("plan not found")
	ErrPlanExists   = errors.New("plan type already exists")
)

type PlanRepo struct {
	pool *pgxpool.Pool
}

type PlanRecord struct {
	ID         string
	Kind       string
	Type       string
	Price      int64
	DurationMS int64
}

func NewPlanRepo(pool *pgxpool.Pool) *PlanRepo {
	return &PlanRepo{pool: pool}
}

func (r *PlanRepo) FindByType(ctx context.Context, kind, planType string) (PlanRecord, error) {
	if r.pool == nil {
		return PlanRecord{}, fmt.Errorf("postgres pool is nil")
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	planType = strings.ToLower(strings.TrimSpace(planType))
	if kind == "" || planType == "" {
		return PlanRecord{}, fmt.Errorf("invalid plan lookup payload")
	}

	record, err := scanPlan(r.pool.QueryRow(ctx, `
SELECT id, kind, type, price, duration_ms
FROM plans
WHERE kind = $1
  AND type = $2
LIMIT 1
`, kind, planType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PlanRecord{}, ErrPlanNotFound
		}
		return PlanRecord{}, fmt.Errorf("find plan by type: %w", err)
	}

	return record, nil
}

func (r *PlanRepo) List(ctx context.Context, kind string) ([]PlanRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		return nil, fmt.Errorf("plan kind is required")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, kind, type, price, duration_ms
FROM plans
WHERE kind = $1
ORDER BY price
`, kind)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var records []PlanRecord
	for rows.Next() {
		record, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plan rows: %w", err)
	}

	return records, nil
}

func (r *PlanRepo) Create(ctx context.Context, kind, planType string, price, durationMS int64) (PlanRecord, error) {
	if r.pool == nil {
		return PlanRecord{}, fmt.Errorf("postgres pool is nil")
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	planType = strings.ToLower(strings.TrimSpace(planType))
	if kind == "" || planType == "" || price <= 0 || durationMS <= 0 {
		return PlanRecord{}, fmt.Errorf("invalid plan create payload")
	}

	record, err := scanPlan(r.pool.QueryRow(ctx, `
INSERT INTO plans (id, kind, type, price, duration_ms)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, kind, type, price, duration_ms
`, uuid.NewString(), kind, planType, price, durationMS))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return PlanRecord{}, ErrPlanExists
		}
		return PlanRecord{}, fmt.Errorf("create plan: %w", err)
	}

	return record, nil
}

func (r *PlanRepo) UpdatePrice(ctx context.Context, kind, planType string, price int64) (PlanRecord, error) {
	if r.pool == nil {
		return PlanRecord{}, fmt.Errorf("postgres pool is nil")
	}
	kind = strings.ToLower(strings.TrimSpace(kind))
	planType = strings.ToLower(strings.TrimSpace(planType))
	if kind == "" || planType == "" || price <= 0 {
		return PlanRecord{}, fmt.Errorf("invalid plan price payload")
	}

	record, err := scanPlan(r.pool.QueryRow(ctx, `
UPDATE plans
SET price = $3
WHERE kind = $1
  AND type = $2
RETURNING id, kind, type, price, duration_ms
`, kind, planType, price))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PlanRecord{}, ErrPlanNotFound
		}
		return PlanRecord{}, fmt.Errorf("update plan price: %w", err)
	}

	return record, nil
}

func (r *PlanRepo) Update(ctx context.Context, id string, price, durationMS *int64) (PlanRecord, error) {
	if r.pool == nil {
		return PlanRecord{}, fmt.Errorf("postgres pool is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return PlanRecord{}, fmt.Errorf("plan id is required")
	}
	if price == nil && durationMS == nil {
		return PlanRecord{}, fmt.Errorf("nothing to update")
	}

	record, err := scanPlan(r.pool.QueryRow(ctx, `
UPDATE plans
SET
	price = COALESCE($2, price),
	duration_ms = COALESCE($3, duration_ms)
WHERE id = $1
RETURNING id, kind, type, price, duration_ms
`, id, price, durationMS))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PlanRecord{}, ErrPlanNotFound
		}
		return PlanRecord{}, fmt.Errorf("update plan: %w", err)
	}

	return record, nil
}

func (r *PlanRepo) Delete(ctx context.Context, id string) (PlanRecord, error) {
	if r.pool == nil {
		return PlanRecord{}, fmt.Errorf("postgres pool is nil")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return PlanRecord{}, fmt.Errorf("plan id is required")
	}

	record, err := scanPlan(r.pool.QueryRow(ctx, `
DELETE FROM plans
WHERE id = $1
RETURNING id, kind, type, price, duration_ms
`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PlanRecord{}, ErrPlanNotFound
		}
		return PlanRecord{}, fmt.Errorf("delete plan: %w", err)
	}

	return record, nil
}

func scanPlan(row pgx.Row) (PlanRecord, error) {
	var record PlanRecord
	if err := row.Scan(
		&record.ID,
		&record.Kind,
		&record.Type,
		&record.Price,
		&record.DurationMS,
	); err != nil {
		return PlanRecord{}, err
	}
	return record, nil
}
