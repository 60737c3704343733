package plans

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	pgrepo "github.com/Kingestif/Talak-kinash-backend/internal/repo/postgres"
	redrepo "github.com/Kingestif/Talak-kinash-backend/internal/repo/redis"
)

const (
	KindSubscription = "subscription"
	KindPromotion    = "promotion"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrPlanNotFound = errors.New("plan not found")
	ErrPlanExists   = errors.New("plan type already exists")
)

type Store interface {
	FindByType(ctx context.Context, kind, planType string) (pgrepo.PlanRecord, error)
	List(ctx context.Context, kind string) ([]pgrepo.PlanRecord, error)
	Create(ctx context.Context, kind, planType string, price, durationMS int64) (pgrepo.PlanRecord, error)
	UpdatePrice(ctx context.Context, kind, planType string, price int64) (pgrepo.PlanRecord, error)
	Update(ctx context.Context, id string, price, durationMS *int64) (pgrepo.PlanRecord, error)
	Delete(ctx context.Context, id string) (pgrepo.PlanRecord, error)
}

type Cache interface {
	Get(ctx context.Context, kind, planType string) (redrepo.CachedPlan, error)
	Set(ctx context.Context, plan redrepo.CachedPlan, ttl time.Duration) error
	Invalidate(ctx context.Context, kind, planType string) error
}

type Plan struct {
	ID       string
	Kind     string
	Type     string
	Price    int64
	Duration time.Duration
}

type Service struct {
	store    Store
	cache    Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

func NewService(store Store, cache Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:    store,
		cache:    cache,
		cacheTTL: 5 * time.Minute,
		logger:   logger,
	}
}

// Find resolves a plan through the read-through cache. Redis being down or
// cold only costs a postgres round trip.
func (s *Service) Find(ctx context.Context, kind, planType string) (Plan, error) {
	kind, err := normalizeKind(kind)
	if err != nil {
		return Plan{}, err
	}
	planType = strings.ToLower(strings.TrimSpace(planType))
	if planType == "" {
		return Plan{}, ErrValidation
	}
	if s.store == nil {
		return Plan{}, fmt.Errorf("plan store is nil")
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, kind, planType)
		if err == nil {
			return fromCached(cached), nil
		}
		if !errors.Is(err, redrepo.ErrCacheMiss) {
			s.logger.Debug("plan cache read failed", zap.Error(err))
		}
	}

	record, err := s.store.FindByType(ctx, kind, planType)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPlanNotFound) {
			return Plan{}, ErrPlanNotFound
		}
		return Plan{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, toCached(record), s.cacheTTL); err != nil {
			s.logger.Debug("plan cache write failed", zap.Error(err))
		}
	}

	return fromRecord(record), nil
}

func (s *Service) List(ctx context.Context, kind string) ([]Plan, error) {
	kind, err := normalizeKind(kind)
	if err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, fmt.Errorf("plan store is nil")
	}

	records, err := s.store.List(ctx, kind)
	if err != nil {
		return nil, err
	}

	result := make([]Plan, 0, len(records))
	for _, record := range records {
		result = append(result, fromRecord(record))
	}
	return result, nil
}

func (s *Service) UpdateSubscriptionPrice(ctx context.Context, planType string, price int64) (Plan, error) {
	planType = strings.ToLower(strings.TrimSpace(planType))
	if planType == "" || price <= 0 {
		return Plan{}, ErrValidation
	}
	if s.store == nil {
		return Plan{}, fmt.Errorf("plan store is nil")
	}

	record, err := s.store.UpdatePrice(ctx, KindSubscription, planType, price)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPlanNotFound) {
			return Plan{}, ErrPlanNotFound
		}
		return Plan{}, err
	}

	s.invalidate(ctx, record.Kind, record.Type)
	return fromRecord(record), nil
}

// AddPromotionPlan takes the duration in days, mirroring the admin API;
// storage keeps milliseconds.
func (s *Service) AddPromotionPlan(ctx context.Context, planType string, price int64, durationDays int64) (Plan, error) {
	planType = strings.ToLower(strings.TrimSpace(planType))
	if planType == "" || price <= 0 || durationDays <= 0 {
		return Plan{}, ErrValidation
	}
	if s.store == nil {
		return Plan{}, fmt.Errorf("plan store is nil")
	}

	record, err := s.store.Create(ctx, KindPromotion, planType, price, durationDays*24*60*60*1000)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPlanExists) {
			return Plan{}, ErrPlanExists
		}
		return Plan{}, err
	}

	return fromRecord(record), nil
}

func (s *Service) UpdatePromotionPlan(ctx context.Context, id string, price *int64, durationDays *int64) (Plan, error) {
	id = strings.TrimSpace(id)
	if id == "" || (price == nil && durationDays == nil) {
		return Plan{}, ErrValidation
	}
	if price != nil && *price <= 0 {
		return Plan{}, ErrValidation
	}
	if durationDays != nil && *durationDays <= 0 {
		return Plan{}, ErrValidation
	}
	if s.store == nil {
		return Plan{}, fmt.Errorf("plan store is nil")
	}

	var durationMS *int64
	if durationDays != nil {
		ms := *durationDays * 24 * 60 * 60 * 1000
		durationMS = &ms
	}

	record, err := s.store.Update(ctx, id, price, durationMS)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPlanNotFound) {
			return Plan{}, ErrPlanNotFound
		}
		return Plan{}, err
	}

	s.invalidate(ctx, record.Kind, record.Type)
	return fromRecord(record), nil
}

func (s *Service) DeletePromotionPlan(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrValidation
	}
	if s.store == nil {
		return fmt.Errorf("plan store is nil")
	}

	record, err := s.store.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPlanNotFound) {
			return ErrPlanNotFound
		}
		return err
	}

	s.invalidate(ctx, record.Kind, record.Type)
	return nil
}

func (s *Service) invalidate(ctx context.Context, kind, planType string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, kind, planType); err != nil {
		s.logger.Warn("plan cache invalidation failed",
			zap.String("kind", kind),
			zap.String("type", planType),
			zap.Error(err),
		)
	}
}

func normalizeKind(raw string) (string, error) {
	kind := strings.ToLower(strings.TrimSpace(raw))
	switch kind {
	case KindSubscription, KindPromotion:
		return kind, nil
	default:
		return "", ErrValidation
	}
}

func fromRecord(record pgrepo.PlanRecord) Plan {
	return Plan{
		ID:       record.ID,
		Kind:     record.Kind,
		Type:     record.Type,
		Price:    record.Price,
		Duration: time.Duration(record.DurationMS) * time.Millisecond,
	}
}

func fromCached(cached redrepo.CachedPlan) Plan {
	return Plan{
		ID:       cached.ID,
		Kind:     cached.Kind,
		Type:     cached.Type,
		Price:    cached.Price,
		Duration: time.Duration(cached.DurationMS) * time.Millisecond,
	}
}

func toCached(record pgrepo.PlanRecord) redrepo.CachedPlan {
	return redrepo.CachedPlan{
		ID:         record.ID,
		Kind:       record.Kind,
		Type:       record.Type,
		Price:      record.Price,
		DurationMS: record.DurationMS,
	}
}
