package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weighops/weighops/internal/shared"
)

// PgRepository provides PostgreSQL backed account lookup.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// FindByEmail fetches the account for a login attempt.
func (r *PgRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	var acc Account
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, password_hash, role_id, org_id, is_active, created_at
		FROM users
		WHERE lower(email) = lower($1)`, email).
		Scan(&acc.ID, &acc.Email, &acc.Name, &acc.PasswordHash, &acc.RoleID, &acc.OrgID, &acc.IsActive, &acc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrNotFound
		}
		return Account{}, err
	}
	return acc, nil
}
