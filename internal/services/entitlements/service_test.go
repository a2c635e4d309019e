package entitlements

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	pgrepo "github.com/xulioguimaraes/sportstips/internal/repo/postgres"
)

// memEntitlementStore mirrors the postgres store semantics in memory: FIFO
// spend across packages, unique purchases per (user, tip).
type memEntitlementStore struct {
	nextPackageID  int64
	nextPurchaseID int64
	packages       []pgrepo.PackageRecord
	purchases      []pgrepo.TipPurchaseRecord
}

func (m *memEntitlementStore) credit(userEmail, planID, name string, tips int, txID string) {
	m.nextPackageID++
	m.packages = append(m.packages, pgrepo.PackageRecord{
		ID:            m.nextPackageID,
		UserEmail:     userEmail,
		PlanID:        planID,
		Name:          name,
		TipsIncluded:  tips,
		TipsRemaining: tips,
		PurchasedAt:   time.Now().UTC(),
		TransactionID: txID,
	})
}

func (m *memEntitlementStore) SpendTip(_ context.Context, userEmail, tipID string, now time.Time) (pgrepo.SpendResult, error) {
	var target *pgrepo.PackageRecord
	for i := range m.packages {
		if m.packages[i].UserEmail == userEmail && m.packages[i].TipsRemaining > 0 {
			target = &m.packages[i]
			break
		}
	}
	if target == nil {
		return pgrepo.SpendResult{}, pgrepo.ErrNoCredit
	}

	for _, purchase := range m.purchases {
		if purchase.UserEmail == userEmail && purchase.TipID == tipID {
			return pgrepo.SpendResult{}, pgrepo.ErrTipAlreadyPurchased
		}
	}

	m.nextPurchaseID++
	m.purchases = append(m.purchases, pgrepo.TipPurchaseRecord{
		ID:            m.nextPurchaseID,
		UserEmail:     userEmail,
		TipID:         tipID,
		PurchasedAt:   now,
		PackageID:     target.ID,
		PackagePlanID: target.PlanID,
		PackageName:   target.Name,
		TransactionID: target.TransactionID,
	})
	target.TipsRemaining--
	used := now
	target.LastUsedAt = &used

	return pgrepo.SpendResult{PurchaseID: m.nextPurchaseID, Package: *target}, nil
}

func (m *memEntitlementStore) HasPurchased(_ context.Context, userEmail, tipID string) (bool, error) {
	for _, purchase := range m.purchases {
		if purchase.UserEmail == userEmail && purchase.TipID == tipID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memEntitlementStore) ListPackages(_ context.Context, userEmail string) ([]pgrepo.PackageRecord, error) {
	var out []pgrepo.PackageRecord
	for _, pkg := range m.packages {
		if pkg.UserEmail == userEmail {
			out = append(out, pkg)
		}
	}
	return out, nil
}

func (m *memEntitlementStore) ListPurchases(_ context.Context, userEmail string) ([]pgrepo.TipPurchaseRecord, error) {
	var out []pgrepo.TipPurchaseRecord
	for _, purchase := range m.purchases {
		if purchase.UserEmail == userEmail {
			out = append(out, purchase)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PurchasedAt.After(out[j].PurchasedAt) })
	return out, nil
}

type memUserStore struct {
	users map[string]pgrepo.UserRecord
}

func (m memUserStore) FindByEmail(_ context.Context, email string) (pgrepo.UserRecord, error) {
	user, ok := m.users[email]
	if !ok {
		return pgrepo.UserRecord{}, pgrepo.ErrUserNotFound
	}
	return user, nil
}

type memTipStore struct {
	tips map[string]pgrepo.TipRecord
}

func (m memTipStore) FindByID(_ context.Context, tipID string) (pgrepo.TipRecord, error) {
	tip, ok := m.tips[tipID]
	if !ok {
		return pgrepo.TipRecord{}, pgrepo.ErrTipNotFound
	}
	return tip, nil
}

func (m memTipStore) FindByIDs(_ context.Context, tipIDs []string) ([]pgrepo.TipRecord, error) {
	var out []pgrepo.TipRecord
	for _, id := range tipIDs {
		if tip, ok := m.tips[id]; ok {
			out = append(out, tip)
		}
	}
	return out, nil
}

type memLedger struct {
	confirmed []pgrepo.TransactionRecord
}

func (m memLedger) ListConfirmedByUser(_ context.Context, userEmail string) ([]pgrepo.TransactionRecord, error) {
	var out []pgrepo.TransactionRecord
	for _, tx := range m.confirmed {
		if tx.UserEmail == userEmail {
			out = append(out, tx)
		}
	}
	return out, nil
}

const testUser = "buyer@example.com"

func newEntitlementService(store *memEntitlementStore, tips memTipStore, ledger memLedger) *Service {
	return NewService(Dependencies{
		Users:        memUserStore{users: map[string]pgrepo.UserRecord{testUser: {ID: 1, Email: testUser}}},
		Entitlements: store,
		Tips:         tips,
		Ledger:       ledger,
	}, nil)
}

func premiumTip(id string) pgrepo.TipRecord {
	return pgrepo.TipRecord{ID: id, Teams: "A x B", Prediction: "Over 2.5", IsPremium: true, Status: pgrepo.TipStatusActive}
}

func TestPurchaseTipSpendsFIFOAcrossPackages(t *testing.T) {
	store := &memEntitlementStore{}
	store.credit(testUser, "pack2", "Pacote 2", 2, "tx-old")
	store.credit(testUser, "pack5", "Pacote 5", 5, "tx-new")

	tips := memTipStore{tips: map[string]pgrepo.TipRecord{}}
	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("tip-%d", i)
		tips.tips[id] = premiumTip(id)
	}
	svc := newEntitlementService(store, tips, memLedger{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := svc.PurchaseTip(ctx, testUser, fmt.Sprintf("tip-%d", i))
		if err != nil {
			t.Fatalf("purchase %d: %v", i, err)
		}
		if i < 2 && result.PackageUsed.PlanID != "pack2" {
			t.Fatalf("purchase %d should drain the oldest package, used %q", i, result.PackageUsed.PlanID)
		}
		if i == 2 && result.PackageUsed.PlanID != "pack5" {
			t.Fatalf("purchase %d should roll over to the next package, used %q", i, result.PackageUsed.PlanID)
		}
	}

	if store.packages[0].TipsRemaining != 0 {
		t.Fatalf("oldest package should be exhausted, has %d", store.packages[0].TipsRemaining)
	}
	if store.packages[1].TipsRemaining != 4 {
		t.Fatalf("second package should have 4 left, has %d", store.packages[1].TipsRemaining)
	}
}

func TestPurchaseTipExhaustsCreditsThenFails(t *testing.T) {
	store := &memEntitlementStore{}
	store.credit(testUser, "pack5", "Pacote 5", 5, "tx-1")
	svc := newEntitlementService(store, memTipStore{tips: map[string]pgrepo.TipRecord{}}, memLedger{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.PurchaseTip(ctx, testUser, fmt.Sprintf("tip-%d", i)); err != nil {
			t.Fatalf("purchase %d: %v", i, err)
		}
	}

	if _, err := svc.PurchaseTip(ctx, testUser, "tip-5"); !errors.Is(err, ErrNoCredit) {
		t.Fatalf("expected ErrNoCredit after 5 spends, got %v", err)
	}
}

func TestPurchaseTipRejectsDuplicate(t *testing.T) {
	store := &memEntitlementStore{}
	store.credit(testUser, "pack5", "Pacote 5", 5, "tx-1")
	svc := newEntitlementService(store, memTipStore{}, memLedger{})
	ctx := context.Background()

	if _, err := svc.PurchaseTip(ctx, testUser, "tip-1"); err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	if _, err := svc.PurchaseTip(ctx, testUser, "tip-1"); !errors.Is(err, ErrAlreadyPurchased) {
		t.Fatalf("expected ErrAlreadyPurchased, got %v", err)
	}

	remaining := store.packages[0].TipsRemaining
	if remaining != 4 {
		t.Fatalf("duplicate must not burn a credit, remaining %d", remaining)
	}
}

func TestPurchaseTipUnknownUserWinsOverMissingCredit(t *testing.T) {
	svc := newEntitlementService(&memEntitlementStore{}, memTipStore{}, memLedger{})

	_, err := svc.PurchaseTip(context.Background(), "ghost@example.com", "tip-1")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCheckAccessFreeTipSkipsUserLookup(t *testing.T) {
	tips := memTipStore{tips: map[string]pgrepo.TipRecord{
		"tip-free": {ID: "tip-free", Teams: "A x B", IsPremium: false},
	}}
	svc := newEntitlementService(&memEntitlementStore{}, tips, memLedger{})

	// unknown user on purpose, free tips must not need one
	access, err := svc.CheckAccess(context.Background(), "ghost@example.com", "tip-free")
	if err != nil {
		t.Fatalf("check access: %v", err)
	}
	if !access.Allowed || access.IsPremium {
		t.Fatalf("free tip should be open: %+v", access)
	}
}

func TestCheckAccessPremiumTip(t *testing.T) {
	store := &memEntitlementStore{}
	store.credit(testUser, "pack5", "Pacote 5", 5, "tx-1")
	tips := memTipStore{tips: map[string]pgrepo.TipRecord{"tip-1": premiumTip("tip-1")}}
	svc := newEntitlementService(store, tips, memLedger{})
	ctx := context.Background()

	access, err := svc.CheckAccess(ctx, testUser, "tip-1")
	if err != nil {
		t.Fatalf("check access before purchase: %v", err)
	}
	if access.Allowed {
		t.Fatalf("unpurchased premium tip should be denied: %+v", access)
	}

	if _, err := svc.PurchaseTip(ctx, testUser, "tip-1"); err != nil {
		t.Fatalf("purchase: %v", err)
	}

	access, err = svc.CheckAccess(ctx, testUser, "tip-1")
	if err != nil {
		t.Fatalf("check access after purchase: %v", err)
	}
	if !access.Allowed {
		t.Fatalf("purchased premium tip should be allowed: %+v", access)
	}
}

func TestCheckAccessUnknownTip(t *testing.T) {
	svc := newEntitlementService(&memEntitlementStore{}, memTipStore{}, memLedger{})

	_, err := svc.CheckAccess(context.Background(), testUser, "ghost-tip")
	if !errors.Is(err, ErrTipNotFound) {
		t.Fatalf("expected ErrTipNotFound, got %v", err)
	}
}

func TestListPurchasedJoinsAndSkipsInconsistentRows(t *testing.T) {
	store := &memEntitlementStore{}
	store.credit(testUser, "pack5", "Pacote 5", 5, "tx-1")
	tips := memTipStore{tips: map[string]pgrepo.TipRecord{
		"tip-1": premiumTip("tip-1"),
		"tip-2": premiumTip("tip-2"),
	}}
	ledger := memLedger{confirmed: []pgrepo.TransactionRecord{
		{ID: "tx-1", UserEmail: testUser, PlanPrice: 4990, Status: pgrepo.TxStatusConfirmed},
	}}
	svc := newEntitlementService(store, tips, ledger)
	ctx := context.Background()

	for _, tipID := range []string{"tip-1", "tip-2", "tip-deleted"} {
		if _, err := svc.PurchaseTip(ctx, testUser, tipID); err != nil {
			t.Fatalf("purchase %s: %v", tipID, err)
		}
	}

	purchased, err := svc.ListPurchased(ctx, testUser)
	if err != nil {
		t.Fatalf("list purchased: %v", err)
	}

	// tip-deleted has no tip row and must be skipped
	if len(purchased) != 2 {
		t.Fatalf("expected 2 purchased tips, got %d", len(purchased))
	}
	for _, item := range purchased {
		if item.PricePaid != 4990 {
			t.Fatalf("expected plan price from confirmed transaction, got %d", item.PricePaid)
		}
	}
	for i := 1; i < len(purchased); i++ {
		if purchased[i-1].PurchasedAt.Before(purchased[i].PurchasedAt) {
			t.Fatalf("purchases must be newest first")
		}
	}
}

func TestGetBalanceSumsPackages(t *testing.T) {
	store := &memEntitlementStore{}
	store.credit(testUser, "pack2", "Pacote 2", 2, "tx-1")
	store.credit(testUser, "pack5", "Pacote 5", 5, "tx-2")
	svc := newEntitlementService(store, memTipStore{}, memLedger{})

	balance, err := svc.GetBalance(context.Background(), testUser)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance.TipsRemaining != 7 {
		t.Fatalf("expected 7 remaining, got %d", balance.TipsRemaining)
	}
	if len(balance.Packages) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(balance.Packages))
	}
}
