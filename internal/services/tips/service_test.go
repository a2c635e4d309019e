package tips

import (
	"context"
	"errors"
	"strings"
	"testing"

	pgrepo "github.com/xulioguimaraes/sportstips/internal/repo/postgres"
)

type memTipStore struct {
	nextID int
	tips   map[string]pgrepo.TipRecord
}

func newMemTipStore() *memTipStore {
	return &memTipStore{tips: map[string]pgrepo.TipRecord{}}
}

func (m *memTipStore) Create(_ context.Context, in pgrepo.CreateTipInput) (pgrepo.TipRecord, error) {
	m.nextID++
	category := in.Category
	if strings.TrimSpace(category) == "" {
		category = "football"
	}
	record := pgrepo.TipRecord{
		ID:          string(rune('a' + m.nextID)),
		Category:    category,
		League:      in.League,
		Teams:       in.Teams,
		MatchDate:   in.MatchDate,
		MatchTime:   in.MatchTime,
		Prediction:  in.Prediction,
		Confidence:  in.Confidence,
		IsPremium:   in.IsPremium,
		Description: in.Description,
		Odds:        in.Odds,
		Status:      pgrepo.TipStatusActive,
	}
	m.tips[record.ID] = record
	return record, nil
}

func (m *memTipStore) Update(_ context.Context, tipID string, in pgrepo.UpdateTipInput) (pgrepo.TipRecord, error) {
	record, ok := m.tips[tipID]
	if !ok {
		return pgrepo.TipRecord{}, pgrepo.ErrTipNotFound
	}
	if in.MatchDate != nil {
		record.MatchDate = *in.MatchDate
	}
	if in.Prediction != nil {
		record.Prediction = *in.Prediction
	}
	if in.Status != nil {
		record.Status = *in.Status
	}
	if in.Result != nil {
		result := *in.Result
		record.Result = &result
	}
	m.tips[tipID] = record
	return record, nil
}

func (m *memTipStore) FindByID(_ context.Context, tipID string) (pgrepo.TipRecord, error) {
	record, ok := m.tips[tipID]
	if !ok {
		return pgrepo.TipRecord{}, pgrepo.ErrTipNotFound
	}
	return record, nil
}

func (m *memTipStore) ListByMatchDate(_ context.Context, matchDate string) ([]pgrepo.TipRecord, error) {
	var out []pgrepo.TipRecord
	for _, record := range m.tips {
		if record.MatchDate == matchDate {
			out = append(out, record)
		}
	}
	return out, nil
}

func TestCreateNormalizesMatchDate(t *testing.T) {
	store := newMemTipStore()
	svc := NewService(store, nil)

	record, err := svc.Create(context.Background(), CreateInput{
		Teams:      "Flamengo x Palmeiras",
		Prediction: "Over 2.5",
		MatchDate:  "2025-03-10T19:30:00Z",
		Confidence: 80,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if record.MatchDate != "2025-03-10" {
		t.Fatalf("expected normalized date, got %q", record.MatchDate)
	}
	if record.Category != "football" {
		t.Fatalf("expected default category, got %q", record.Category)
	}
	if record.Status != pgrepo.TipStatusActive {
		t.Fatalf("expected active status, got %q", record.Status)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemTipStore(), nil)
	ctx := context.Background()

	cases := []CreateInput{
		{Teams: "", Prediction: "Over 2.5", MatchDate: "2025-03-10"},
		{Teams: "A x B", Prediction: "", MatchDate: "2025-03-10"},
		{Teams: "A x B", Prediction: "Over", MatchDate: "not-a-date"},
		{Teams: "A x B", Prediction: "Over", MatchDate: "2025-03-10", Confidence: 140},
	}
	for i, in := range cases {
		if _, err := svc.Create(ctx, in); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: expected ErrValidation, got %v", i, err)
		}
	}
}

func TestListByDateMatchesExactDay(t *testing.T) {
	store := newMemTipStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	for _, date := range []string{"2025-03-10", "2025-03-10", "2025-03-11"} {
		if _, err := svc.Create(ctx, CreateInput{
			Teams:      "A x B",
			Prediction: "Over 2.5",
			MatchDate:  date,
		}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	// different input representation, same day
	tips, err := svc.ListByDate(ctx, "10/03/2025")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tips) != 2 {
		t.Fatalf("expected 2 tips on 2025-03-10, got %d", len(tips))
	}
}

func TestUpdateSetsResultAndStatus(t *testing.T) {
	store := newMemTipStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{
		Teams:      "A x B",
		Prediction: "Over 2.5",
		MatchDate:  "2025-03-10",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	status := pgrepo.TipStatusCompleted
	result := "win"
	updated, err := svc.Update(ctx, created.ID, UpdateInput{Status: &status, Result: &result})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != pgrepo.TipStatusCompleted || updated.Result == nil || *updated.Result != "win" {
		t.Fatalf("unexpected updated tip: %+v", updated)
	}
}

func TestUpdateRejectsUnknownStatus(t *testing.T) {
	store := newMemTipStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{
		Teams:      "A x B",
		Prediction: "Over 2.5",
		MatchDate:  "2025-03-10",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	status := "finished"
	if _, err := svc.Update(ctx, created.ID, UpdateInput{Status: &status}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown status, got %v", err)
	}
}

func TestUpdateUnknownTip(t *testing.T) {
	svc := NewService(newMemTipStore(), nil)

	status := pgrepo.TipStatusCompleted
	if _, err := svc.Update(context.Background(), "ghost", UpdateInput{Status: &status}); !errors.Is(err, ErrTipNotFound) {
		t.Fatalf("expected ErrTipNotFound, got %v", err)
	}
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"2025-03-10":           "2025-03-10",
		"2025-03-10T19:30:00Z": "2025-03-10",
		"2025-03-10T19:30:00":  "2025-03-10",
		"10/03/2025":           "2025-03-10",
	}
	for input, want := range cases {
		got, err := NormalizeDate(input)
		if err != nil {
			t.Fatalf("normalize %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("normalize %q: got %q want %q", input, got, want)
		}
	}

	if _, err := NormalizeDate("soon"); err == nil {
		t.Fatalf("expected error for unparseable date")
	}
}
