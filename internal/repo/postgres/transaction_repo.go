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

var ErrTransactionNotFound = errors.New("transaction not found")

// Normalized ledger statuses. The raw gateway event name that produced a
// terminal transition is kept separately in gateway_event for audit.
const (
	TxStatusPending    = "pending"
	TxStatusProcessing = "processing"
	TxStatusConfirmed  = "confirmed"
	TxStatusFailed     = "failed"
	TxStatusCancelled  = "cancelled"
)

type TransactionRepo struct {
	pool *pgxpool.Pool
}

type TransactionRecord struct {
	ID               string
	UserEmail        string
	PlanID           string
	PlanName         string
	PlanPrice        int
	PlanType         string
	PaymentMethod    string
	PixKeyID         string
	PixPayload       string
	QRImageKey       *string
	ExpiresAt        time.Time
	Status           string
	GatewayEvent     *string
	GatewayPaymentID *string
	RawPayload       map[string]any
	ConfirmedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type CreateTransactionInput struct {
	UserEmail     string
	PlanID        string
	PlanName      string
	PlanPrice     int
	PlanType      string
	PaymentMethod string
	PixKeyID      string
	PixPayload    string
	ExpiresAt     time.Time
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

func (r *TransactionRepo) Create(ctx context.Context, in CreateTransactionInput) (TransactionRecord, error) {
	if r.pool == nil {
		return TransactionRecord{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(in.UserEmail) == "" || strings.TrimSpace(in.PlanID) == "" || strings.TrimSpace(in.PixKeyID) == "" {
		return TransactionRecord{}, fmt.Errorf("invalid transaction create payload")
	}

	txID := uuid.NewString()
	rec, err := scanTransaction(r.pool.QueryRow(ctx, `
INSERT INTO transactions (
	id,
	user_email,
	plan_id,
	plan_name,
	plan_price,
	plan_type,
	payment_method,
	pix_key_id,
	pix_payload,
	expires_at,
	status,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'pending', NOW(), NOW())
RETURNING `+transactionColumns+`
`, txID,
		normalizeEmail(in.UserEmail),
		strings.TrimSpace(in.PlanID),
		in.PlanName,
		in.PlanPrice,
		in.PlanType,
		in.PaymentMethod,
		strings.TrimSpace(in.PixKeyID),
		in.PixPayload,
		in.ExpiresAt.UTC(),
	))
	if err != nil {
		return TransactionRecord{}, fmt.Errorf("create transaction: %w", err)
	}

	return rec, nil
}

// FindAllByPixKeyID returns every ledger row minted against the gateway key.
// More than one row is possible when charge creation was retried; confirmation
// must touch all of them.
func (r *TransactionRepo) FindAllByPixKeyID(ctx context.Context, pixKeyID string) ([]TransactionRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	pixKeyID = strings.TrimSpace(pixKeyID)
	if pixKeyID == "" {
		return nil, fmt.Errorf("pix key id is required")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+transactionColumns+`
FROM transactions
WHERE pix_key_id = $1
ORDER BY created_at ASC
`, pixKeyID)
	if err != nil {
		return nil, fmt.Errorf("find transactions by pix key id: %w", err)
	}
	defer rows.Close()

	var records []TransactionRecord
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}

	return records, nil
}

// MarkConfirmed transitions a ledger row to the confirmed status, stamping the
// confirmation time and storing the raw gateway event for audit. Re-applying
// the same terminal value is harmless, which keeps webhook redelivery safe.
func (r *TransactionRepo) MarkConfirmed(
	ctx context.Context,
	transactionID, gatewayEvent, gatewayPaymentID string,
	payload map[string]any,
	now time.Time,
) (TransactionRecord, error) {
	if r.pool == nil {
		return TransactionRecord{}, fmt.Errorf("postgres pool is nil")
	}
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" || strings.TrimSpace(gatewayEvent) == "" {
		return TransactionRecord{}, fmt.Errorf("invalid confirm payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	payloadJSON, err := marshalPayload(payload)
	if err != nil {
		return TransactionRecord{}, err
	}

	rec, err := scanTransaction(r.pool.QueryRow(ctx, `
UPDATE transactions
SET
	status = 'confirmed',
	gateway_event = $2,
	gateway_payment_id = NULLIF($3, ''),
	raw_payload = $4::jsonb,
	confirmed_at = COALESCE(confirmed_at, $5),
	updated_at = NOW()
WHERE id = $1
RETURNING `+transactionColumns+`
`, transactionID, strings.TrimSpace(gatewayEvent), strings.TrimSpace(gatewayPaymentID), payloadJSON, now.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TransactionRecord{}, ErrTransactionNotFound
		}
		return TransactionRecord{}, fmt.Errorf("mark transaction confirmed: %w", err)
	}

	return rec, nil
}

func (r *TransactionRepo) FindByID(ctx context.Context, transactionID string) (TransactionRecord, error) {
	if r.pool == nil {
		return TransactionRecord{}, fmt.Errorf("postgres pool is nil")
	}
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return TransactionRecord{}, fmt.Errorf("transaction id is required")
	}

	rec, err := scanTransaction(r.pool.QueryRow(ctx, `
SELECT `+transactionColumns+`
FROM transactions
WHERE id = $1
LIMIT 1
`, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TransactionRecord{}, ErrTransactionNotFound
		}
		return TransactionRecord{}, fmt.Errorf("find transaction by id: %w", err)
	}

	return rec, nil
}

// ListConfirmedByUser feeds the purchase-history projection with plan prices.
func (r *TransactionRepo) ListConfirmedByUser(ctx context.Context, userEmail string) ([]TransactionRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	userEmail = normalizeEmail(userEmail)
	if userEmail == "" {
		return nil, fmt.Errorf("user email is required")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+transactionColumns+`
FROM transactions
WHERE user_email = $1
  AND status = 'confirmed'
ORDER BY confirmed_at DESC
`, userEmail)
	if err != nil {
		return nil, fmt.Errorf("list confirmed transactions: %w", err)
	}
	defer rows.Close()

	var records []TransactionRecord
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}

	return records, nil
}

// SetQRImageKey records where the archived QR PNG landed in object storage.
func (r *TransactionRepo) SetQRImageKey(ctx context.Context, transactionID, key string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(transactionID) == "" || strings.TrimSpace(key) == "" {
		return fmt.Errorf("invalid qr image key payload")
	}

	if _, err := r.pool.Exec(ctx, `
UPDATE transactions
SET qr_image_key = $2, updated_at = NOW()
WHERE id = $1
`, strings.TrimSpace(transactionID), strings.TrimSpace(key)); err != nil {
		return fmt.Errorf("set qr image key: %w", err)
	}

	return nil
}

const transactionColumns = `
	id,
	user_email,
	plan_id,
	plan_name,
	plan_price,
	plan_type,
	payment_method,
	pix_key_id,
	pix_payload,
	qr_image_key,
	expires_at,
	status,
	gateway_event,
	gateway_payment_id,
	raw_payload,
	confirmed_at,
	created_at,
	updated_at`

func scanTransaction(row pgx.Row) (TransactionRecord, error) {
	var rec TransactionRecord
	var payloadRaw []byte
	if err := row.Scan(
		&rec.ID,
		&rec.UserEmail,
		&rec.PlanID,
		&rec.PlanName,
		&rec.PlanPrice,
		&rec.PlanType,
		&rec.PaymentMethod,
		&rec.PixKeyID,
		&rec.PixPayload,
		&rec.QRImageKey,
		&rec.ExpiresAt,
		&rec.Status,
		&rec.GatewayEvent,
		&rec.GatewayPaymentID,
		&payloadRaw,
		&rec.ConfirmedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return TransactionRecord{}, err
	}
	rec.RawPayload = decodePayload(payloadRaw)
	return rec, nil
}

func marshalPayload(payload map[string]any) (string, error) {
	if len(payload) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(raw), nil
}

func decodePayload(raw []byte) map[string]any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	return payload
}
