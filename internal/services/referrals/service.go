package referrals

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"

	pgrepo "github.com/Kingestif/Talak-kinash-backend/internal/repo/postgres"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrInvalidReferralCode = errors.New("invalid referral code")
)

const (
	promoCodePrefix   = "TALAK-"
	promoCodeLength   = 6
	promoCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// Collisions in a 36^6 space are rare; a handful of retries is plenty.
	maxMintAttempts = 5
)

type Store interface {
	FindByReferralCode(ctx context.Context, code string) (pgrepo.UserRecord, error)
	Redeem(ctx context.Context, referrerID int64, award, threshold int, promoCode string, promoExpiresAt time.Time) (pgrepo.RedeemOutcome, error)
	ListActivePromoCodes(ctx context.Context, ownerID int64, at time.Time) ([]pgrepo.PromoCodeRecord, error)
}

type Notifier interface {
	ReferralThanks(to string, points int)
	PromoCodeIssued(to, code string, expiresAt time.Time)
}

type Config struct {
	Award        int
	Threshold    int
	PromoCodeTTL time.Duration
}

type Result struct {
	ReferrerID  int64
	Points      int
	PromoIssued bool
	PromoCode   string
}

type Service struct {
	store    Store
	notifier Notifier
	cfg      Config
	now      func() time.Time
	logger   *zap.Logger
}

func NewService(store Store, notifier Notifier, cfg Config, logger *zap.Logger) *Service {
	if cfg.Award <= 0 {
		cfg.Award = 100
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 1000
	}
	if cfg.PromoCodeTTL <= 0 {
		cfg.PromoCodeTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		logger:   logger,
	}
}

// Redeem credits the owner of referralCode. Crossing the threshold resets
// the counter and mints exactly one promo code; a code collision retries
// the whole transaction, which rolled back the award too, so points are
// never credited twice for one redemption.
func (s *Service) Redeem(ctx context.Context, referralCode string) (Result, error) {
	referralCode = strings.TrimSpace(referralCode)
	if referralCode == "" {
		return Result{}, ErrValidation
	}
	if s.store == nil {
		return Result{}, fmt.Errorf("referral store is nil")
	}

	referrer, err := s.store.FindByReferralCode(ctx, referralCode)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return Result{}, ErrInvalidReferralCode
		}
		return Result{}, err
	}

	var outcome pgrepo.RedeemOutcome
	for attempt := 0; ; attempt++ {
		code, err := newPromoCode()
		if err != nil {
			return Result{}, err
		}

		outcome, err = s.store.Redeem(ctx, referrer.ID, s.cfg.Award, s.cfg.Threshold, code, s.now().UTC().Add(s.cfg.PromoCodeTTL))
		if err == nil {
			break
		}
		if !errors.Is(err, pgrepo.ErrPromoCodeExists) || attempt+1 >= maxMintAttempts {
			return Result{}, err
		}
		s.logger.Debug("promo code collision, retrying redemption", zap.Int("attempt", attempt+1))
	}

	if s.notifier != nil {
		if outcome.Minted {
			s.notifier.PromoCodeIssued(referrer.Email, outcome.PromoCode.Code, outcome.PromoCode.ExpiresAt)
		} else {
			s.notifier.ReferralThanks(referrer.Email, outcome.Points)
		}
	}

	s.logger.Info("referral redeemed",
		zap.Int64("referrer_id", referrer.ID),
		zap.Int("points", outcome.Points),
		zap.Bool("promo_issued", outcome.Minted),
	)

	return Result{
		ReferrerID:  referrer.ID,
		Points:      outcome.Points,
		PromoIssued: outcome.Minted,
		PromoCode:   outcome.PromoCode.Code,
	}, nil
}

func (s *Service) ActivePromoCodes(ctx context.Context, ownerID int64) ([]pgrepo.PromoCodeRecord, error) {
	if ownerID <= 0 {
		return nil, ErrValidation
	}
	if s.store == nil {
		return nil, fmt.Errorf("referral store is nil")
	}

	return s.store.ListActivePromoCodes(ctx, ownerID, s.now().UTC())
}

func newPromoCode() (string, error) {
	var b strings.Builder
	b.WriteString(promoCodePrefix)
	for i := 0; i < promoCodeLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(promoCodeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("generate promo code: %w", err)
		}
		b.WriteByte(promoCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
