package tips

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	pgrepo "github.com/xulioguimaraes/sportstips/internal/repo/postgres"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrTipNotFound = errors.New("tip not found")
)

const dateLayout = "2006-01-02"

// Layouts accepted on input. Everything is normalized to dateLayout before it
// touches the store, so listing is always an exact date match.
var acceptedDateLayouts = []string{
	dateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02/01/2006",
}

type TipStore interface {
	Create(ctx context.Context, in pgrepo.CreateTipInput) (pgrepo.TipRecord, error)
	Update(ctx context.Context, tipID string, in pgrepo.UpdateTipInput) (pgrepo.TipRecord, error)
	FindByID(ctx context.Context, tipID string) (pgrepo.TipRecord, error)
	ListByMatchDate(ctx context.Context, matchDate string) ([]pgrepo.TipRecord, error)
}

type Service struct {
	store  TipStore
	logger *zap.Logger
}

type CreateInput struct {
	Category    string
	League      string
	Teams       string
	MatchDate   string
	MatchTime   string
	Prediction  string
	Confidence  int
	IsPremium   bool
	Description string
	Odds        []pgrepo.TipOdd
}

type UpdateInput struct {
	Category    *string
	League      *string
	Teams       *string
	MatchDate   *string
	MatchTime   *string
	Prediction  *string
	Confidence  *int
	IsPremium   *bool
	Description *string
	Odds        []pgrepo.TipOdd
	Status      *string
	Result      *string
}

func NewService(store TipStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (pgrepo.TipRecord, error) {
	if s.store == nil {
		return pgrepo.TipRecord{}, fmt.Errorf("tip store is nil")
	}
	if strings.TrimSpace(in.Teams) == "" || strings.TrimSpace(in.Prediction) == "" {
		return pgrepo.TipRecord{}, ErrValidation
	}
	if in.Confidence < 0 || in.Confidence > 100 {
		return pgrepo.TipRecord{}, ErrValidation
	}

	matchDate, err := NormalizeDate(in.MatchDate)
	if err != nil {
		return pgrepo.TipRecord{}, ErrValidation
	}

	return s.store.Create(ctx, pgrepo.CreateTipInput{
		Category:    in.Category,
		League:      in.League,
		Teams:       in.Teams,
		MatchDate:   matchDate,
		MatchTime:   strings.TrimSpace(in.MatchTime),
		Prediction:  in.Prediction,
		Confidence:  in.Confidence,
		IsPremium:   in.IsPremium,
		Description: in.Description,
		Odds:        in.Odds,
	})
}

func (s *Service) Update(ctx context.Context, tipID string, in UpdateInput) (pgrepo.TipRecord, error) {
	if s.store == nil {
		return pgrepo.TipRecord{}, fmt.Errorf("tip store is nil")
	}
	tipID = strings.TrimSpace(tipID)
	if tipID == "" {
		return pgrepo.TipRecord{}, ErrValidation
	}
	if in.Confidence != nil && (*in.Confidence < 0 || *in.Confidence > 100) {
		return pgrepo.TipRecord{}, ErrValidation
	}
	if in.Status != nil && !pgrepo.ValidTipStatus(*in.Status) {
		return pgrepo.TipRecord{}, ErrValidation
	}

	update := pgrepo.UpdateTipInput{
		Category:    in.Category,
		League:      in.League,
		Teams:       in.Teams,
		MatchTime:   in.MatchTime,
		Prediction:  in.Prediction,
		Confidence:  in.Confidence,
		IsPremium:   in.IsPremium,
		Description: in.Description,
		Odds:        in.Odds,
		Status:      in.Status,
		Result:      in.Result,
	}
	if in.MatchDate != nil {
		normalized, err := NormalizeDate(*in.MatchDate)
		if err != nil {
			return pgrepo.TipRecord{}, ErrValidation
		}
		update.MatchDate = &normalized
	}

	record, err := s.store.Update(ctx, tipID, update)
	if err != nil {
		if errors.Is(err, pgrepo.ErrTipNotFound) {
			return pgrepo.TipRecord{}, ErrTipNotFound
		}
		return pgrepo.TipRecord{}, err
	}

	return record, nil
}

func (s *Service) GetByID(ctx context.Context, tipID string) (pgrepo.TipRecord, error) {
	if s.store == nil {
		return pgrepo.TipRecord{}, fmt.Errorf("tip store is nil")
	}
	tipID = strings.TrimSpace(tipID)
	if tipID == "" {
		return pgrepo.TipRecord{}, ErrValidation
	}

	record, err := s.store.FindByID(ctx, tipID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrTipNotFound) {
			return pgrepo.TipRecord{}, ErrTipNotFound
		}
		return pgrepo.TipRecord{}, err
	}

	return record, nil
}

// ListByDate returns tips for one calendar day. An empty date means today in
// UTC.
func (s *Service) ListByDate(ctx context.Context, date string) ([]pgrepo.TipRecord, error) {
	if s.store == nil {
		return nil, fmt.Errorf("tip store is nil")
	}

	if strings.TrimSpace(date) == "" {
		date = time.Now().UTC().Format(dateLayout)
	}
	normalized, err := NormalizeDate(date)
	if err != nil {
		return nil, ErrValidation
	}

	return s.store.ListByMatchDate(ctx, normalized)
}

// NormalizeDate reduces any accepted date representation to YYYY-MM-DD.
func NormalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("date is required")
	}

	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(dateLayout), nil
		}
	}

	return "", fmt.Errorf("unrecognized date %q", raw)
}
