package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrTipNotFound = errors.New("tip not found")

const (
	TipStatusActive    = "active"
	TipStatusInactive  = "inactive"
	TipStatusCompleted = "completed"
)

// ValidTipStatus reports whether s is one of the tip status values the schema
// accepts.
func ValidTipStatus(s string) bool {
	switch s {
	case TipStatusActive, TipStatusInactive, TipStatusCompleted:
		return true
	}
	return false
}

// TipRepo stores the tip catalog. Rows are keyed by uuid and carry a
// normalized match_date (YYYY-MM-DD) alongside the display match time so the
// daily listing is a plain equality filter.
type TipRepo struct {
	pool *pgxpool.Pool
}

type TipOdd struct {
	House  string  `json:"house"`
	Value  float64 `json:"value"`
	IsBest bool    `json:"isBest"`
}

type TipRecord struct {
	ID          string
	Category    string
	League      string
	Teams       string
	MatchDate   string
	MatchTime   string
	Prediction  string
	Confidence  int
	IsPremium   bool
	Description string
	Odds        []TipOdd
	Status      string
	Result      *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CreateTipInput struct {
	Category    string
	League      string
	Teams       string
	MatchDate   string
	MatchTime   string
	Prediction  string
	Confidence  int
	IsPremium   bool
	Description string
	Odds        []TipOdd
}

type UpdateTipInput struct {
	Category    *string
	League      *string
	Teams       *string
	MatchDate   *string
	MatchTime   *string
	Prediction  *string
	Confidence  *int
	IsPremium   *bool
	Description *string
	Odds        []TipOdd
	Status      *string
	Result      *string
}

func NewTipRepo(pool *pgxpool.Pool) *TipRepo {
	return &TipRepo{pool: pool}
}

func (r *TipRepo) Create(ctx context.Context, in CreateTipInput) (TipRecord, error) {
	if r.pool == nil {
		return TipRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(in.Teams) == "" || strings.TrimSpace(in.Prediction) == "" {
		return TipRecord{}, fmt.Errorf("invalid tip create payload")
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "football"
	}

	oddsJSON, err := marshalOdds(in.Odds)
	if err != nil {
		return TipRecord{}, err
	}

	rec, err := scanTip(r.pool.QueryRow(ctx, `
INSERT INTO tips (
	id,
	category,
	league,
	teams,
	match_date,
	match_time,
	prediction,
	confidence,
	is_premium,
	description,
	odds,
	status,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::jsonb, 'active', NOW(), NOW())
RETURNING `+tipColumns+`
`, uuid.NewString(),
		category,
		strings.TrimSpace(in.League),
		strings.TrimSpace(in.Teams),
		strings.TrimSpace(in.MatchDate),
		strings.TrimSpace(in.MatchTime),
		strings.TrimSpace(in.Prediction),
		in.Confidence,
		in.IsPremium,
		in.Description,
		oddsJSON,
	))
	if err != nil {
		return TipRecord{}, fmt.Errorf("create tip: %w", err)
	}

	return rec, nil
}

func (r *TipRepo) Update(ctx context.Context, tipID string, in UpdateTipInput) (TipRecord, error) {
	if r.pool == nil {
		return TipRecord{}, fmt.Errorf("postgres pool is nil")
	}
	tipID = strings.TrimSpace(tipID)
	if tipID == "" {
		return TipRecord{}, fmt.Errorf("tip id is required")
	}

	sets := []string{"updated_at = NOW()"}
	args := []any{tipID}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if in.Category != nil {
		add("category", strings.TrimSpace(*in.Category))
	}
	if in.League != nil {
		add("league", strings.TrimSpace(*in.League))
	}
	if in.Teams != nil {
		add("teams", strings.TrimSpace(*in.Teams))
	}
	if in.MatchDate != nil {
		add("match_date", strings.TrimSpace(*in.MatchDate))
	}
	if in.MatchTime != nil {
		add("match_time", strings.TrimSpace(*in.MatchTime))
	}
	if in.Prediction != nil {
		add("prediction", strings.TrimSpace(*in.Prediction))
	}
	if in.Confidence != nil {
		add("confidence", *in.Confidence)
	}
	if in.IsPremium != nil {
		add("is_premium", *in.IsPremium)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.Odds != nil {
		oddsJSON, err := marshalOdds(in.Odds)
		if err != nil {
			return TipRecord{}, err
		}
		args = append(args, oddsJSON)
		sets = append(sets, fmt.Sprintf("odds = $%d::jsonb", len(args)))
	}
	if in.Status != nil {
		add("status", strings.TrimSpace(*in.Status))
	}
	if in.Result != nil {
		add("result", strings.TrimSpace(*in.Result))
	}

	rec, err := scanTip(r.pool.QueryRow(ctx, `
UPDATE tips
SET `+strings.Join(sets, ", ")+`
WHERE id = $1
RETURNING `+tipColumns+`
`, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TipRecord{}, ErrTipNotFound
		}
		return TipRecord{}, fmt.Errorf("update tip: %w", err)
	}

	return rec, nil
}

func (r *TipRepo) FindByID(ctx context.Context, tipID string) (TipRecord, error) {
	if r.pool == nil {
		return TipRecord{}, fmt.Errorf("postgres pool is nil")
	}
	tipID = strings.TrimSpace(tipID)
	if tipID == "" {
		return TipRecord{}, fmt.Errorf("tip id is required")
	}

	rec, err := scanTip(r.pool.QueryRow(ctx, `
SELECT `+tipColumns+`
FROM tips
WHERE id = $1
LIMIT 1
`, tipID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TipRecord{}, ErrTipNotFound
		}
		return TipRecord{}, fmt.Errorf("find tip by id: %w", err)
	}

	return rec, nil
}

// ListByMatchDate returns every tip whose normalized match date equals the
// given YYYY-MM-DD value.
func (r *TipRepo) ListByMatchDate(ctx context.Context, matchDate string) ([]TipRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	matchDate = strings.TrimSpace(matchDate)
	if matchDate == "" {
		return nil, fmt.Errorf("match date is required")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+tipColumns+`
FROM tips
WHERE match_date = $1
ORDER BY match_time ASC, created_at ASC
`, matchDate)
	if err != nil {
		return nil, fmt.Errorf("list tips by match date: %w", err)
	}
	defer rows.Close()

	var tips []TipRecord
	for rows.Next() {
		rec, err := scanTip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tip row: %w", err)
		}
		tips = append(tips, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tip rows: %w", err)
	}

	return tips, nil
}

func (r *TipRepo) FindByIDs(ctx context.Context, tipIDs []string) ([]TipRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if len(tipIDs) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+tipColumns+`
FROM tips
WHERE id = ANY($1)
`, tipIDs)
	if err != nil {
		return nil, fmt.Errorf("find tips by ids: %w", err)
	}
	defer rows.Close()

	var tips []TipRecord
	for rows.Next() {
		rec, err := scanTip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tip row: %w", err)
		}
		tips = append(tips, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tip rows: %w", err)
	}

	return tips, nil
}

const tipColumns = `
	id,
	category,
	league,
	teams,
	match_date,
	match_time,
	prediction,
	confidence,
	is_premium,
	description,
	odds,
	status,
	result,
	created_at,
	updated_at`

func scanTip(row pgx.Row) (TipRecord, error) {
	var rec TipRecord
	var oddsRaw []byte
	if err := row.Scan(
		&rec.ID,
		&rec.Category,
		&rec.League,
		&rec.Teams,
		&rec.MatchDate,
		&rec.MatchTime,
		&rec.Prediction,
		&rec.Confidence,
		&rec.IsPremium,
		&rec.Description,
		&oddsRaw,
		&rec.Status,
		&rec.Result,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return TipRecord{}, err
	}
	rec.Odds = decodeOdds(oddsRaw)
	return rec, nil
}

func marshalOdds(odds []TipOdd) (string, error) {
	if len(odds) == 0 {
		return "[]", nil
	}
	raw, err := json.Marshal(odds)
	if err != nil {
		return "", fmt.Errorf("marshal odds: %w", err)
	}
	return string(raw), nil
}

func decodeOdds(raw []byte) []TipOdd {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var odds []TipOdd
	if err := json.Unmarshal(raw, &odds); err != nil {
		return nil
	}
	return odds
}
