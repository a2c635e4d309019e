package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrPlanNotFound = errors.New("plan not found")

const (
	PlanTypePackage      = "package"
	PlanTypeSubscription = "subscription"
)

// PlanRepo reads the purchasable plan catalog. Plans are edited by an external
// admin tool; the core treats them as read-only reference data.
type PlanRepo struct {
	pool *pgxpool.Pool
}

type PlanRecord struct {
	ID           string
	Name         string
	Type         string
	Price        int // minor currency units (centavos)
	TipsIncluded int
	DurationDays int
	Features     []string
	IsPopular    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func NewPlanRepo(pool *pgxpool.Pool) *PlanRepo {
	return &PlanRepo{pool: pool}
}

func (r *PlanRepo) FindByID(ctx context.Context, planID string) (PlanRecord, error) {
	if r.pool == nil {
		return PlanRecord{}, fmt.Errorf("postgres pool is nil")
	}
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return PlanRecord{}, fmt.Errorf("plan id is required")
	}

	rec, err := scanPlan(r.pool.QueryRow(ctx, `
SELECT id, name, type, price, tips_included, duration_days, features, is_popular, created_at, updated_at
FROM plans
WHERE id = $1
LIMIT 1
`, planID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PlanRecord{}, ErrPlanNotFound
		}
		return PlanRecord{}, fmt.Errorf("find plan by id: %w", err)
	}

	return rec, nil
}

func (r *PlanRepo) List(ctx context.Context) ([]PlanRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, name, type, price, tips_included, duration_days, features, is_popular, created_at, updated_at
FROM plans
ORDER BY price ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []PlanRecord
	for rows.Next() {
		rec, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan row: %w", err)
		}
		plans = append(plans, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plan rows: %w", err)
	}

	return plans, nil
}

func scanPlan(row pgx.Row) (PlanRecord, error) {
	var rec PlanRecord
	var featuresRaw []byte
	if err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Type,
		&rec.Price,
		&rec.TipsIncluded,
		&rec.DurationDays,
		&featuresRaw,
		&rec.IsPopular,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return PlanRecord{}, err
	}
	rec.Features = decodeFeatures(featuresRaw)
	return rec, nil
}

func decodeFeatures(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var features []string
	if err := json.Unmarshal(raw, &features); err != nil {
		return nil
	}
	return features
}
