package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	pgrepo "github.com/xulioguimaraes/sportstips/internal/repo/postgres"
	catalogsvc "github.com/xulioguimaraes/sportstips/internal/services/catalog"
)

var (
	ErrMalformedEvent      = errors.New("malformed webhook event")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Events that confirm a PIX payment. Everything else is acknowledged without
// side effects so the gateway stops retrying.
var confirmationEvents = map[string]bool{
	"PAYMENT_RECEIVED":  true,
	"PAYMENT_CONFIRMED": true,
}

type TransactionStore interface {
	FindAllByPixKeyID(ctx context.Context, pixKeyID string) ([]pgrepo.TransactionRecord, error)
	MarkConfirmed(ctx context.Context, transactionID, gatewayEvent, gatewayPaymentID string, payload map[string]any, now time.Time) (pgrepo.TransactionRecord, error)
}

type EntitlementStore interface {
	CreditPackage(ctx context.Context, userEmail, planID, name string, tipsIncluded int, transactionID string, now time.Time) (pgrepo.PackageRecord, bool, error)
}

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (pgrepo.UserRecord, error)
}

type CatalogService interface {
	Get(ctx context.Context, planID string) (catalogsvc.Plan, error)
}

type Notifier interface {
	SendText(ctx context.Context, text string) error
}

// Service applies gateway webhook deliveries to the payment ledger and user
// entitlements. Redelivered events re-run the whole path; every step is
// idempotent so the second pass is a no-op.
type Service struct {
	ledger       TransactionStore
	entitlements EntitlementStore
	users        UserStore
	catalog      CatalogService
	notifier     Notifier
	logger       *zap.Logger
	now          func() time.Time
}

type Dependencies struct {
	Ledger       TransactionStore
	Entitlements EntitlementStore
	Users        UserStore
	Catalog      CatalogService
}

type WebhookInput struct {
	Event       string
	PaymentID   string
	PixQrCodeID string
	Payload     map[string]any
}

type TransactionResult struct {
	TransactionID string
	UserEmail     string
	PlanID        string
	UserUpdated   bool
	Credited      bool
	Detail        string
}

type WebhookResult struct {
	Handled      bool
	Message      string
	PixKeyID     string
	Transactions []TransactionResult
}

func NewService(deps Dependencies, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		ledger:       deps.Ledger,
		entitlements: deps.Entitlements,
		users:        deps.Users,
		catalog:      deps.Catalog,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *Service) AttachNotifier(notifier Notifier) {
	s.notifier = notifier
}

func (s *Service) HandleEvent(ctx context.Context, in WebhookInput) (WebhookResult, error) {
	if s.ledger == nil || s.entitlements == nil || s.users == nil || s.catalog == nil {
		return WebhookResult{}, fmt.Errorf("payments dependencies are not configured")
	}

	event := strings.ToUpper(strings.TrimSpace(in.Event))
	if !confirmationEvents[event] {
		s.logger.Debug("ignoring webhook event", zap.String("event", in.Event))
		return WebhookResult{
			Handled: false,
			Message: fmt.Sprintf("event %s ignored", in.Event),
		}, nil
	}

	pixKeyID := strings.TrimSpace(in.PixQrCodeID)
	if pixKeyID == "" {
		return WebhookResult{}, ErrMalformedEvent
	}

	records, err := s.ledger.FindAllByPixKeyID(ctx, pixKeyID)
	if err != nil {
		return WebhookResult{}, err
	}
	if len(records) == 0 {
		return WebhookResult{}, ErrTransactionNotFound
	}

	now := s.now().UTC()
	results := make([]TransactionResult, 0, len(records))
	for _, record := range records {
		results = append(results, s.confirmTransaction(ctx, record, event, in, now))
	}

	return WebhookResult{
		Handled:      true,
		Message:      fmt.Sprintf("%d transaction(s) updated", len(results)),
		PixKeyID:     pixKeyID,
		Transactions: results,
	}, nil
}

// confirmTransaction processes one ledger row. Failures are isolated per row:
// a broken plan or user only marks that row's result, the other rows for the
// same QR code still go through.
func (s *Service) confirmTransaction(
	ctx context.Context,
	record pgrepo.TransactionRecord,
	event string,
	in WebhookInput,
	now time.Time,
) TransactionResult {
	result := TransactionResult{
		TransactionID: record.ID,
		UserEmail:     record.UserEmail,
		PlanID:        record.PlanID,
	}

	confirmed, err := s.ledger.MarkConfirmed(ctx, record.ID, event, in.PaymentID, in.Payload, now)
	if err != nil {
		s.logger.Error("mark transaction confirmed failed",
			zap.String("transaction_id", record.ID),
			zap.Error(err),
		)
		result.Detail = "ledger update failed"
		return result
	}

	plan, err := s.catalog.Get(ctx, confirmed.PlanID)
	if err != nil {
		if errors.Is(err, catalogsvc.ErrPlanNotFound) {
			s.logger.Warn("confirmed transaction references unknown plan",
				zap.String("transaction_id", confirmed.ID),
				zap.String("plan_id", confirmed.PlanID),
			)
			result.Detail = "plan not found, user not updated"
			return result
		}
		s.logger.Error("plan lookup failed",
			zap.String("transaction_id", confirmed.ID),
			zap.Error(err),
		)
		result.Detail = "plan lookup failed"
		return result
	}

	switch plan.Type {
	case pgrepo.PlanTypePackage:
		// Accounts come from the frontend identity provider. An unknown payer
		// leaves the ledger row confirmed but the credit unapplied.
		if _, err := s.users.FindByEmail(ctx, confirmed.UserEmail); err != nil {
			if errors.Is(err, pgrepo.ErrUserNotFound) {
				s.logger.Warn("confirmed transaction references unknown user",
					zap.String("transaction_id", confirmed.ID),
					zap.String("user_email", confirmed.UserEmail),
				)
				result.Detail = "user not found, entitlement not applied"
				return result
			}
			s.logger.Error("user lookup failed",
				zap.String("transaction_id", confirmed.ID),
				zap.String("user_email", confirmed.UserEmail),
				zap.Error(err),
			)
			result.Detail = "user resolution failed"
			return result
		}

		pkg, credited, err := s.entitlements.CreditPackage(
			ctx,
			confirmed.UserEmail,
			plan.ID,
			plan.Name,
			plan.TipsIncluded,
			confirmed.ID,
			now,
		)
		if err != nil {
			s.logger.Error("package credit failed",
				zap.String("transaction_id", confirmed.ID),
				zap.Error(err),
			)
			result.Detail = "package credit failed"
			return result
		}

		result.UserUpdated = true
		result.Credited = credited
		if credited {
			result.Detail = "package credited"
			s.notifyCredit(ctx, confirmed, plan, pkg)
		} else {
			result.Detail = "package already credited"
		}

	case pgrepo.PlanTypeSubscription:
		// Subscriptions only confirm the ledger row. Recurring access is
		// granted by a separate billing job.
		result.UserUpdated = false
		result.Detail = "subscription confirmed"

	default:
		s.logger.Warn("confirmed transaction has unknown plan type",
			zap.String("transaction_id", confirmed.ID),
			zap.String("plan_type", plan.Type),
		)
		result.Detail = "unknown plan type"
	}

	return result
}

func (s *Service) notifyCredit(ctx context.Context, tx pgrepo.TransactionRecord, plan catalogsvc.Plan, pkg pgrepo.PackageRecord) {
	if s.notifier == nil {
		return
	}

	text := fmt.Sprintf(
		"PIX confirmed: %s bought %s (%d tips), tx %s",
		tx.UserEmail, plan.Name, pkg.TipsIncluded, tx.ID,
	)
	if err := s.notifier.SendText(ctx, text); err != nil {
		s.logger.Warn("ops notification failed", zap.String("transaction_id", tx.ID), zap.Error(err))
	}
}
