package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepo reads accounts keyed by email. Accounts are created by the
// frontend's identity provider; the backend never writes them.
type UserRepo struct {
	pool *pgxpool.Pool
}

type UserRecord struct {
	ID          int64
	Email       string
	DisplayName string
	Role        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (UserRecord, error) {
	if r.pool == nil {
		return UserRecord{}, fmt.Errorf("postgres pool is nil")
	}
	email = normalizeEmail(email)
	if email == "" {
		return UserRecord{}, fmt.Errorf("email is required")
	}

	var rec UserRecord
	err := r.pool.QueryRow(ctx, `
SELECT id, email, display_name, role, created_at, updated_at
FROM users
WHERE email = $1
LIMIT 1
`, email).Scan(&rec.ID, &rec.Email, &rec.DisplayName, &rec.Role, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("find user by email: %w", err)
	}

	return rec, nil
}

func normalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
