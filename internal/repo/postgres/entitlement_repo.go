package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNoCredit            = errors.New("no package with available tips")
	ErrTipAlreadyPurchased = errors.New("tip already purchased")
)

// EntitlementRepo owns the two high-contention pieces of user state: the
// package (credit) list and the purchased-tips set. Credits are appended only
// by the webhook confirmation path and spent only by SpendTip; packages are
// never deleted, exhausted ones stay behind as history.
type EntitlementRepo struct {
	pool *pgxpool.Pool
}

type PackageRecord struct {
	ID            int64
	UserEmail     string
	PlanID        string
	Name          string
	TipsIncluded  int
	TipsRemaining int
	PurchasedAt   time.Time
	TransactionID string
	LastUsedAt    *time.Time
}

type TipPurchaseRecord struct {
	ID            int64
	UserEmail     string
	TipID         string
	PurchasedAt   time.Time
	PackageID     int64
	PackagePlanID string
	PackageName   string
	TransactionID string
}

type SpendResult struct {
	PurchaseID int64
	Package    PackageRecord
}

func NewEntitlementRepo(pool *pgxpool.Pool) *EntitlementRepo {
	return &EntitlementRepo{pool: pool}
}

// CreditPackage appends a package entitlement for a confirmed transaction.
// The unique index on transaction_id makes redelivered webhooks a no-op: the
// second insert conflicts and the existing row is returned with credited=false.
func (r *EntitlementRepo) CreditPackage(
	ctx context.Context,
	userEmail, planID, name string,
	tipsIncluded int,
	transactionID string,
	now time.Time,
) (PackageRecord, bool, error) {
	if r.pool == nil {
		return PackageRecord{}, false, fmt.Errorf("postgres pool is nil")
	}
	userEmail = normalizeEmail(userEmail)
	planID = strings.TrimSpace(planID)
	transactionID = strings.TrimSpace(transactionID)
	if userEmail == "" || planID == "" || transactionID == "" || tipsIncluded <= 0 {
		return PackageRecord{}, false, fmt.Errorf("invalid credit package payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	rec, err := scanPackage(r.pool.QueryRow(ctx, `
INSERT INTO packages (
	user_email,
	plan_id,
	name,
	tips_included,
	tips_remaining,
	purchased_at,
	transaction_id
) VALUES ($1, $2, $3, $4, $4, $5, $6)
ON CONFLICT (transaction_id) DO NOTHING
RETURNING `+packageColumns+`
`, userEmail, planID, name, tipsIncluded, now.UTC(), transactionID))
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return PackageRecord{}, false, fmt.Errorf("credit package: %w", err)
	}

	existing, err := scanPackage(r.pool.QueryRow(ctx, `
SELECT `+packageColumns+`
FROM packages
WHERE transaction_id = $1
LIMIT 1
`, transactionID))
	if err != nil {
		return PackageRecord{}, false, fmt.Errorf("load already credited package: %w", err)
	}

	return existing, false, nil
}

// SpendTip consumes one credit from the oldest package with tips remaining and
// records the purchase, all inside one transaction. Precondition order follows
// the purchase contract: no credit beats already-purchased. The row lock on the
// chosen package serializes concurrent spends for the same user, and the
// tips_remaining > 0 guard on the update keeps the balance non-negative even
// if the lock is ever bypassed.
func (r *EntitlementRepo) SpendTip(ctx context.Context, userEmail, tipID string, now time.Time) (SpendResult, error) {
	if r.pool == nil {
		return SpendResult{}, fmt.Errorf("postgres pool is nil")
	}
	userEmail = normalizeEmail(userEmail)
	tipID = strings.TrimSpace(tipID)
	if userEmail == "" || tipID == "" {
		return SpendResult{}, fmt.Errorf("invalid spend payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var out SpendResult
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		pkg, err := scanPackage(tx.QueryRow(txCtx, `
SELECT `+packageColumns+`
FROM packages
WHERE user_email = $1
  AND tips_remaining > 0
ORDER BY id ASC
LIMIT 1
FOR UPDATE
`, userEmail))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNoCredit
			}
			return fmt.Errorf("lock oldest package: %w", err)
		}

		var purchaseID int64
		err = tx.QueryRow(txCtx, `
INSERT INTO tip_purchases (
	user_email,
	tip_id,
	purchased_at,
	package_id,
	package_plan_id,
	package_name,
	transaction_id
) VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id
`, userEmail, tipID, now.UTC(), pkg.ID, pkg.PlanID, pkg.Name, pkg.TransactionID).Scan(&purchaseID)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return ErrTipAlreadyPurchased
			}
			return fmt.Errorf("record tip purchase: %w", err)
		}

		updated, err := scanPackage(tx.QueryRow(txCtx, `
UPDATE packages
SET tips_remaining = tips_remaining - 1, last_used_at = $2
WHERE id = $1
  AND tips_remaining > 0
RETURNING `+packageColumns+`
`, pkg.ID, now.UTC()))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNoCredit
			}
			return fmt.Errorf("decrement package credits: %w", err)
		}

		out = SpendResult{PurchaseID: purchaseID, Package: updated}
		return nil
	})
	if err != nil {
		return SpendResult{}, err
	}

	return out, nil
}

func (r *EntitlementRepo) HasPurchased(ctx context.Context, userEmail, tipID string) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}
	userEmail = normalizeEmail(userEmail)
	tipID = strings.TrimSpace(tipID)
	if userEmail == "" || tipID == "" {
		return false, fmt.Errorf("invalid access check payload")
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (
	SELECT 1
	FROM tip_purchases
	WHERE user_email = $1
	  AND tip_id = $2
)
`, userEmail, tipID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check tip purchase: %w", err)
	}

	return exists, nil
}

func (r *EntitlementRepo) ListPackages(ctx context.Context, userEmail string) ([]PackageRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	userEmail = normalizeEmail(userEmail)
	if userEmail == "" {
		return nil, fmt.Errorf("user email is required")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+packageColumns+`
FROM packages
WHERE user_email = $1
ORDER BY id ASC
`, userEmail)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()

	var packages []PackageRecord
	for rows.Next() {
		rec, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan package row: %w", err)
		}
		packages = append(packages, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate package rows: %w", err)
	}

	return packages, nil
}

func (r *EntitlementRepo) ListPurchases(ctx context.Context, userEmail string) ([]TipPurchaseRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	userEmail = normalizeEmail(userEmail)
	if userEmail == "" {
		return nil, fmt.Errorf("user email is required")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, user_email, tip_id, purchased_at, package_id, package_plan_id, package_name, transaction_id
FROM tip_purchases
WHERE user_email = $1
ORDER BY purchased_at DESC
`, userEmail)
	if err != nil {
		return nil, fmt.Errorf("list tip purchases: %w", err)
	}
	defer rows.Close()

	var purchases []TipPurchaseRecord
	for rows.Next() {
		var rec TipPurchaseRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.UserEmail,
			&rec.TipID,
			&rec.PurchasedAt,
			&rec.PackageID,
			&rec.PackagePlanID,
			&rec.PackageName,
			&rec.TransactionID,
		); err != nil {
			return nil, fmt.Errorf("scan tip purchase row: %w", err)
		}
		purchases = append(purchases, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tip purchase rows: %w", err)
	}

	return purchases, nil
}

const packageColumns = `
	id,
	user_email,
	plan_id,
	name,
	tips_included,
	tips_remaining,
	purchased_at,
	transaction_id,
	last_used_at`

func scanPackage(row pgx.Row) (PackageRecord, error) {
	var rec PackageRecord
	if err := row.Scan(
		&rec.ID,
		&rec.UserEmail,
		&rec.PlanID,
		&rec.Name,
		&rec.TipsIncluded,
		&rec.TipsRemaining,
		&rec.PurchasedAt,
		&rec.TransactionID,
		&rec.LastUsedAt,
	); err != nil {
		return PackageRecord{}, err
	}
	return rec, nil
}
