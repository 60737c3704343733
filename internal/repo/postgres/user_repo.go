package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepo struct {
	pool *pgxpool.Pool
}

type UserRecord struct {
	ID           int64
	Email        string
	Name         string
	ReferralCode string
	RewardPoints int
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) FindByReferralCode(ctx context.Context, code string) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return UserRecord{}, fmt.Errorf("referral code is required")
	}

	var record UserRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, email, name, referral_code, reward_points
FROM users
WHERE referral_code = $1
LIMIT 1
`, code).Scan(
		&record.ID,
		&record.Email,
		&record.Name,
		&record.ReferralCode,
		&record.RewardPoints,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("find user by referral code: %w", err)
	}

	return record, nil
}

// AddRewardPointsTx atomically increments the referrer's counter and
// returns the post-increment value. The row lock taken by the UPDATE
// serializes concurrent referrals of the same referrer.
func (r *UserRepo) AddRewardPointsTx(ctx context.Context, tx pgx.Tx, userID int64, award int) (int, error) {
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}
	if userID <= 0 || award <= 0 {
		return 0, fmt.Errorf("invalid reward payload")
	}

	var points int
	err := tx.QueryRow(ctx, `
UPDATE users
SET
	reward_points = reward_points + $2,
	updated_at = NOW()
WHERE id = $1
RETURNING reward_points
`, userID, award).Scan(&points)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("add reward points: %w", err)
	}

	return points, nil
}

// ResetRewardPointsTx zeroes the counter only if it still sits at or above
// the threshold, reporting whether this call performed the reset. The
// RowsAffected guard keeps two transactions from both claiming the same
// threshold crossing.
func (r *UserRepo) ResetRewardPointsTx(ctx context.Context, tx pgx.Tx, userID int64, threshold int) (bool, error) {
	if tx == nil {
		return false, fmt.Errorf("transaction is required")
	}
	if userID <= 0 || threshold <= 0 {
		return false, fmt.Errorf("invalid reset payload")
	}

	result, err := tx.Exec(ctx, `
UPDATE users
SET
	reward_points = 0,
	updated_at = NOW()
WHERE id = $1
  AND reward_points >= $2
`, userID, threshold)
	if err != nil {
		return false, fmt.Errorf("reset reward points: %w", err)
	}

	return result.RowsAffected() > 0, nil
}
