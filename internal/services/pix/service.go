package pix

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"github.com/xulioguimaraes/sportstips/internal/infra/asaas"
	pgrepo "github.com/xulioguimaraes/sportstips/internal/repo/postgres"
	catalogsvc "github.com/xulioguimaraes/sportstips/internal/services/catalog"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrPlanNotFound = errors.New("plan not found")
	ErrGateway      = errors.New("payment gateway error")
)

type Gateway interface {
	CreateStaticQRCode(ctx context.Context, in asaas.CreateStaticQRCodeInput) (asaas.StaticQRCode, error)
}

type TransactionStore interface {
	Create(ctx context.Context, in pgrepo.CreateTransactionInput) (pgrepo.TransactionRecord, error)
	SetQRImageKey(ctx context.Context, transactionID, key string) error
}

type CatalogService interface {
	Get(ctx context.Context, planID string) (catalogsvc.Plan, error)
}

type QRArchive interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Service creates PIX charges. A gateway failure leaves no ledger row behind,
// so a retried request mints a fresh QR code. The QR image archive to object
// storage is best effort and never fails the charge.
type Service struct {
	catalog    CatalogService
	gateway    Gateway
	ledger     TransactionStore
	archive    QRArchive
	bucket     string
	addressKey string
	chargeTTL  time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

type Dependencies struct {
	Catalog CatalogService
	Gateway Gateway
	Ledger  TransactionStore
}

type Config struct {
	PixAddressKey string
	ChargeTTL     time.Duration
}

type CreateChargeInput struct {
	PlanID     string
	PayerEmail string
}

type CreateChargeResult struct {
	TransactionID string
	PixKeyID      string
	Payload       string
	EncodedImage  string
	ExpiresAt     time.Time
	Plan          catalogsvc.Plan
}

func NewService(deps Dependencies, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.ChargeTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Service{
		catalog:    deps.Catalog,
		gateway:    deps.Gateway,
		ledger:     deps.Ledger,
		addressKey: strings.TrimSpace(cfg.PixAddressKey),
		chargeTTL:  ttl,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *Service) AttachArchive(archive QRArchive, bucket string) {
	s.archive = archive
	s.bucket = strings.TrimSpace(bucket)
}

func (s *Service) CreateCharge(ctx context.Context, in CreateChargeInput) (CreateChargeResult, error) {
	if s.catalog == nil || s.gateway == nil || s.ledger == nil {
		return CreateChargeResult{}, fmt.Errorf("pix dependencies are not configured")
	}

	planID := strings.TrimSpace(in.PlanID)
	payerEmail := strings.ToLower(strings.TrimSpace(in.PayerEmail))
	if planID == "" || payerEmail == "" {
		return CreateChargeResult{}, ErrValidation
	}

	plan, err := s.catalog.Get(ctx, planID)
	if err != nil {
		if errors.Is(err, catalogsvc.ErrPlanNotFound) {
			return CreateChargeResult{}, ErrPlanNotFound
		}
		if errors.Is(err, catalogsvc.ErrValidation) {
			return CreateChargeResult{}, ErrValidation
		}
		return CreateChargeResult{}, err
	}

	expiresAt := s.now().UTC().Add(s.chargeTTL)
	qr, err := s.gateway.CreateStaticQRCode(ctx, asaas.CreateStaticQRCodeInput{
		Value:          float64(plan.Price) / 100,
		Description:    fmt.Sprintf("%s - %s", plan.Name, payerEmail),
		AddressKey:     s.addressKey,
		ExpirationDate: expiresAt,
	})
	if err != nil {
		s.logger.Warn("pix charge creation failed at gateway",
			zap.String("plan_id", plan.ID),
			zap.Error(err),
		)
		return CreateChargeResult{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	record, err := s.ledger.Create(ctx, pgrepo.CreateTransactionInput{
		UserEmail:     payerEmail,
		PlanID:        plan.ID,
		PlanName:      plan.Name,
		PlanPrice:     plan.Price,
		PlanType:      plan.Type,
		PaymentMethod: "pix",
		PixKeyID:      qr.ID,
		PixPayload:    qr.Payload,
		ExpiresAt:     expiresAt,
	})
	if err != nil {
		return CreateChargeResult{}, err
	}

	s.archiveQRImage(ctx, record.ID, qr.EncodedImage)

	return CreateChargeResult{
		TransactionID: record.ID,
		PixKeyID:      qr.ID,
		Payload:       qr.Payload,
		EncodedImage:  qr.EncodedImage,
		ExpiresAt:     expiresAt,
		Plan:          plan,
	}, nil
}

// archiveQRImage uploads the QR PNG to object storage and records the key on
// the ledger row. Failures are logged and swallowed.
func (s *Service) archiveQRImage(ctx context.Context, transactionID, encodedImage string) {
	if s.archive == nil || s.bucket == "" || encodedImage == "" {
		return
	}

	raw, err := base64.StdEncoding.DecodeString(encodedImage)
	if err != nil {
		s.logger.Warn("qr image decode failed", zap.String("transaction_id", transactionID), zap.Error(err))
		return
	}

	key := fmt.Sprintf("qrcodes/%s.png", transactionID)
	_, err = s.archive.PutObject(ctx, s.bucket, key, bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: "image/png",
	})
	if err != nil {
		s.logger.Warn("qr image archive failed", zap.String("transaction_id", transactionID), zap.Error(err))
		return
	}

	if err := s.ledger.SetQRImageKey(ctx, transactionID, key); err != nil {
		s.logger.Warn("qr image key persist failed", zap.String("transaction_id", transactionID), zap.Error(err))
	}
}
