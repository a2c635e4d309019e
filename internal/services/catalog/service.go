package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	pgrepo "github.com/xulioguimaraes/sportstips/internal/repo/postgres"
	redrepo "github.com/xulioguimaraes/sportstips/internal/repo/redis"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrPlanNotFound = errors.New("plan not found")
)

type PlanStore interface {
	FindByID(ctx context.Context, planID string) (pgrepo.PlanRecord, error)
	List(ctx context.Context) ([]pgrepo.PlanRecord, error)
}

type PlanCache interface {
	Get(ctx context.Context, planID string, out any) error
	Set(ctx context.Context, planID string, plan any) error
	GetList(ctx context.Context, out any) error
	SetList(ctx context.Context, plans any) error
}

// Service serves the purchasable plan catalog with a redis read-through cache.
// The cache is optional; any cache error is logged and the request falls back
// to postgres.
type Service struct {
	plans  PlanStore
	cache  PlanCache
	logger *zap.Logger
}

type Plan struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	Price        int       `json:"price"`
	TipsIncluded int       `json:"tipsIncluded"`
	DurationDays int       `json:"durationDays,omitempty"`
	Features     []string  `json:"features,omitempty"`
	IsPopular    bool      `json:"isPopular"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func NewService(plans PlanStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{plans: plans, logger: logger}
}

func (s *Service) AttachCache(cache PlanCache) {
	s.cache = cache
}

func (s *Service) Get(ctx context.Context, planID string) (Plan, error) {
	if s.plans == nil {
		return Plan{}, fmt.Errorf("plan store is nil")
	}
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return Plan{}, ErrValidation
	}

	if s.cache != nil {
		var cached Plan
		err := s.cache.Get(ctx, planID, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redrepo.ErrCacheMiss) {
			s.logger.Warn("plan cache read failed", zap.String("plan_id", planID), zap.Error(err))
		}
	}

	record, err := s.plans.FindByID(ctx, planID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrPlanNotFound) {
			return Plan{}, ErrPlanNotFound
		}
		return Plan{}, err
	}

	plan := fromRecord(record)
	if s.cache != nil {
		if err := s.cache.Set(ctx, planID, plan); err != nil {
			s.logger.Warn("plan cache write failed", zap.String("plan_id", planID), zap.Error(err))
		}
	}

	return plan, nil
}

func (s *Service) List(ctx context.Context) ([]Plan, error) {
	if s.plans == nil {
		return nil, fmt.Errorf("plan store is nil")
	}

	if s.cache != nil {
		var cached []Plan
		err := s.cache.GetList(ctx, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, redrepo.ErrCacheMiss) {
			s.logger.Warn("plan list cache read failed", zap.Error(err))
		}
	}

	records, err := s.plans.List(ctx)
	if err != nil {
		return nil, err
	}

	plans := make([]Plan, 0, len(records))
	for _, record := range records {
		plans = append(plans, fromRecord(record))
	}

	if s.cache != nil {
		if err := s.cache.SetList(ctx, plans); err != nil {
			s.logger.Warn("plan list cache write failed", zap.Error(err))
		}
	}

	return plans, nil
}

func fromRecord(record pgrepo.PlanRecord) Plan {
	return Plan{
		ID:           record.ID,
		Name:         record.Name,
		Type:         record.Type,
		Price:        record.Price,
		TipsIncluded: record.TipsIncluded,
		DurationDays: record.DurationDays,
		Features:     record.Features,
		IsPopular:    record.IsPopular,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}
