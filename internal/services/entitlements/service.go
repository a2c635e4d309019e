package entitlements

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
	ErrValidation       = errors.New("validation error")
	ErrUserNotFound     = errors.New("user not found")
	ErrTipNotFound      = errors.New("tip not found")
	ErrNoCredit         = errors.New("no tip credits available")
	ErrAlreadyPurchased = errors.New("tip already purchased")
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (pgrepo.UserRecord, error)
}

type EntitlementStore interface {
	SpendTip(ctx context.Context, userEmail, tipID string, now time.Time) (pgrepo.SpendResult, error)
	HasPurchased(ctx context.Context, userEmail, tipID string) (bool, error)
	ListPackages(ctx context.Context, userEmail string) ([]pgrepo.PackageRecord, error)
	ListPurchases(ctx context.Context, userEmail string) ([]pgrepo.TipPurchaseRecord, error)
}

type TipStore interface {
	FindByID(ctx context.Context, tipID string) (pgrepo.TipRecord, error)
	FindByIDs(ctx context.Context, tipIDs []string) ([]pgrepo.TipRecord, error)
}

type TransactionStore interface {
	ListConfirmedByUser(ctx context.Context, userEmail string) ([]pgrepo.TransactionRecord, error)
}

// Service gates premium tips behind purchased credits. Spending is delegated
// to the store, which runs it in a single transaction; this layer orders the
// preconditions and maps store errors to the caller-facing ones.
type Service struct {
	users        UserStore
	entitlements EntitlementStore
	tips         TipStore
	ledger       TransactionStore
	logger       *zap.Logger
	now          func() time.Time
}

type Dependencies struct {
	Users        UserStore
	Entitlements EntitlementStore
	Tips         TipStore
	Ledger       TransactionStore
}

type PackageUsed struct {
	ID            int64  `json:"id"`
	PlanID        string `json:"planId"`
	Name          string `json:"name"`
	TipsRemaining int    `json:"tipsRemaining"`
}

type PurchaseResult struct {
	PurchaseID  int64
	PackageUsed PackageUsed
}

type AccessResult struct {
	Allowed   bool
	IsPremium bool
	Reason    string
}

type PurchasedTip struct {
	Tip           pgrepo.TipRecord
	PurchasedAt   time.Time
	PricePaid     int
	PackageName   string
	TransactionID string
}

type Balance struct {
	TipsRemaining int
	Packages      []pgrepo.PackageRecord
}

func NewService(deps Dependencies, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:        deps.Users,
		entitlements: deps.Entitlements,
		tips:         deps.Tips,
		ledger:       deps.Ledger,
		logger:       logger,
		now:          time.Now,
	}
}

// PurchaseTip spends one credit on a tip. Precondition order is fixed: an
// unknown user wins over missing credit, and missing credit wins over an
// already purchased tip.
func (s *Service) PurchaseTip(ctx context.Context, userEmail, tipID string) (PurchaseResult, error) {
	if s.users == nil || s.entitlements == nil {
		return PurchaseResult{}, fmt.Errorf("entitlement dependencies are not configured")
	}

	userEmail = normalizeEmail(userEmail)
	tipID = strings.TrimSpace(tipID)
	if userEmail == "" || tipID == "" {
		return PurchaseResult{}, ErrValidation
	}

	if _, err := s.users.FindByEmail(ctx, userEmail); err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return PurchaseResult{}, ErrUserNotFound
		}
		return PurchaseResult{}, err
	}

	result, err := s.entitlements.SpendTip(ctx, userEmail, tipID, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, pgrepo.ErrNoCredit):
			return PurchaseResult{}, ErrNoCredit
		case errors.Is(err, pgrepo.ErrTipAlreadyPurchased):
			return PurchaseResult{}, ErrAlreadyPurchased
		default:
			return PurchaseResult{}, err
		}
	}

	return PurchaseResult{
		PurchaseID: result.PurchaseID,
		PackageUsed: PackageUsed{
			ID:            result.Package.ID,
			PlanID:        result.Package.PlanID,
			Name:          result.Package.Name,
			TipsRemaining: result.Package.TipsRemaining,
		},
	}, nil
}

// CheckAccess decides whether the user may see the tip's full content. Free
// tips are open to everyone and skip the user lookup entirely.
func (s *Service) CheckAccess(ctx context.Context, userEmail, tipID string) (AccessResult, error) {
	if s.tips == nil || s.users == nil || s.entitlements == nil {
		return AccessResult{}, fmt.Errorf("entitlement dependencies are not configured")
	}

	tipID = strings.TrimSpace(tipID)
	if tipID == "" {
		return AccessResult{}, ErrValidation
	}

	tip, err := s.tips.FindByID(ctx, tipID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrTipNotFound) {
			return AccessResult{}, ErrTipNotFound
		}
		return AccessResult{}, err
	}

	if !tip.IsPremium {
		return AccessResult{Allowed: true, IsPremium: false, Reason: "free tip"}, nil
	}

	userEmail = normalizeEmail(userEmail)
	if userEmail == "" {
		return AccessResult{Allowed: false, IsPremium: true, Reason: "authentication required"}, nil
	}

	if _, err := s.users.FindByEmail(ctx, userEmail); err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return AccessResult{}, ErrUserNotFound
		}
		return AccessResult{}, err
	}

	purchased, err := s.entitlements.HasPurchased(ctx, userEmail, tipID)
	if err != nil {
		return AccessResult{}, err
	}
	if !purchased {
		return AccessResult{Allowed: false, IsPremium: true, Reason: "tip not purchased"}, nil
	}

	return AccessResult{Allowed: true, IsPremium: true, Reason: "purchased"}, nil
}

// ListPurchased builds the purchase history: each purchase joined with its tip
// and the confirmed transaction that paid for the package. Purchases whose tip
// was deleted or whose transaction never confirmed are skipped.
func (s *Service) ListPurchased(ctx context.Context, userEmail string) ([]PurchasedTip, error) {
	if s.entitlements == nil || s.tips == nil || s.ledger == nil {
		return nil, fmt.Errorf("entitlement dependencies are not configured")
	}

	userEmail = normalizeEmail(userEmail)
	if userEmail == "" {
		return nil, ErrValidation
	}

	purchases, err := s.entitlements.ListPurchases(ctx, userEmail)
	if err != nil {
		return nil, err
	}
	if len(purchases) == 0 {
		return nil, nil
	}

	confirmed, err := s.ledger.ListConfirmedByUser(ctx, userEmail)
	if err != nil {
		return nil, err
	}
	txByID := make(map[string]pgrepo.TransactionRecord, len(confirmed))
	for _, tx := range confirmed {
		txByID[tx.ID] = tx
	}

	tipIDs := make([]string, 0, len(purchases))
	for _, purchase := range purchases {
		tipIDs = append(tipIDs, purchase.TipID)
	}
	tips, err := s.tips.FindByIDs(ctx, tipIDs)
	if err != nil {
		return nil, err
	}
	tipByID := make(map[string]pgrepo.TipRecord, len(tips))
	for _, tip := range tips {
		tipByID[tip.ID] = tip
	}

	// purchases arrive newest first from the store
	result := make([]PurchasedTip, 0, len(purchases))
	for _, purchase := range purchases {
		tip, ok := tipByID[purchase.TipID]
		if !ok {
			s.logger.Debug("purchase references missing tip",
				zap.String("tip_id", purchase.TipID),
				zap.String("user_email", userEmail),
			)
			continue
		}
		tx, ok := txByID[purchase.TransactionID]
		if !ok {
			s.logger.Debug("purchase references unconfirmed transaction",
				zap.String("transaction_id", purchase.TransactionID),
				zap.String("user_email", userEmail),
			)
			continue
		}
		result = append(result, PurchasedTip{
			Tip:           tip,
			PurchasedAt:   purchase.PurchasedAt,
			PricePaid:     tx.PlanPrice,
			PackageName:   purchase.PackageName,
			TransactionID: purchase.TransactionID,
		})
	}

	return result, nil
}

// GetBalance sums remaining credits across the user's packages.
func (s *Service) GetBalance(ctx context.Context, userEmail string) (Balance, error) {
	if s.entitlements == nil {
		return Balance{}, fmt.Errorf("entitlement dependencies are not configured")
	}

	userEmail = normalizeEmail(userEmail)
	if userEmail == "" {
		return Balance{}, ErrValidation
	}

	packages, err := s.entitlements.ListPackages(ctx, userEmail)
	if err != nil {
		return Balance{}, err
	}

	total := 0
	for _, pkg := range packages {
		total += pkg.TipsRemaining
	}

	return Balance{TipsRemaining: total, Packages: packages}, nil
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
