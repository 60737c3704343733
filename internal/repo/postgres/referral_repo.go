package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReferralRepo bundles the statements of one redemption into a single
// transaction: the point award, the threshold reset and the promo code
// mint either all commit or none do.
type ReferralRepo struct {
	pool   *pgxpool.Pool
	users  *UserRepo
	promos *PromoRepo
}

type RedeemOutcome struct {
	Points    int
	Minted    bool
	PromoCode PromoCodeRecord
}

func NewReferralRepo(pool *pgxpool.Pool) *ReferralRepo {
	return &ReferralRepo{
		pool:   pool,
		users:  NewUserRepo(pool),
		promos: NewPromoRepo(pool),
	}
}

func (r *ReferralRepo) FindByReferralCode(ctx context.Context, code string) (UserRecord, error) {
	return r.users.FindByReferralCode(ctx, code)
}

func (r *ReferralRepo) ListActivePromoCodes(ctx context.Context, ownerID int64, at time.Time) ([]PromoCodeRecord, error) {
	return r.promos.ListActiveByOwner(ctx, ownerID, at)
}

// Redeem awards points to the referrer and, when the post-award counter
// crosses the threshold, resets it and mints promoCode, all in one
// transaction. A unique violation on the code rolls back the whole
// attempt, the award included, so the caller can retry with a fresh code
// without double-crediting.
func (r *ReferralRepo) Redeem(ctx context.Context, referrerID int64, award, threshold int, promoCode string, promoExpiresAt time.Time) (RedeemOutcome, error) {
	var out RedeemOutcome

	err := WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		points, err := r.users.AddRewardPointsTx(ctx, tx, referrerID, award)
		if err != nil {
			return err
		}
		out.Points = points

		if points < threshold {
			return nil
		}

		reset, err := r.users.ResetRewardPointsTx(ctx, tx, referrerID, threshold)
		if err != nil {
			return err
		}
		if !reset {
			// A concurrent transaction claimed this crossing first.
			return nil
		}

		record, err := r.promos.CreateTx(ctx, tx, promoCode, referrerID, promoExpiresAt)
		if err != nil {
			return err
		}

		out.Points = 0
		out.Minted = true
		out.PromoCode = record
		return nil
	})
	if err != nil {
		return RedeemOutcome{}, err
	}

	return out, nil
}
