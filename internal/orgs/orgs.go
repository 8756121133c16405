// Package orgs manages organizations, the tenant root of the platform.
package orgs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weighops/weighops/internal/platform/httpx"
	"github.com/weighops/weighops/internal/shared"
)

// Organization owns stations, users, and drivers.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns all organizations ordered by name.
func (r *Repository) List(ctx context.Context) ([]Organization, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, slug, is_active, created_at FROM organizations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Organization
	for rows.Next() {
		var org Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Slug, &org.IsActive, &org.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

// Get fetches one organization.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Organization, error) {
	var org Organization
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, slug, is_active, created_at FROM organizations WHERE id = $1`, id).
		Scan(&org.ID, &org.Name, &org.Slug, &org.IsActive, &org.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Organization{}, shared.ErrNotFound
	}
	return org, err
}

// Create inserts a new organization.
func (r *Repository) Create(ctx context.Context, name, slug string) (Organization, error) {
	name = strings.TrimSpace(name)
	slug = strings.ToLower(strings.TrimSpace(slug))
	if name == "" || slug == "" {
		return Organization{}, httpx.ErrValidation
	}
	var org Organization
	err := r.pool.QueryRow(ctx, `
		INSERT INTO organizations (id, name, slug, is_active, created_at)
		VALUES ($1, $2, $3, TRUE, NOW())
		RETURNING id, name, slug, is_active, created_at`,
		uuid.New(), name, slug).
		Scan(&org.ID, &org.Name, &org.Slug, &org.IsActive, &org.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Organization{}, shared.ErrDuplicate
		}
		return Organization{}, err
	}
	return org, nil
}

// Update renames an organization or toggles its active flag.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, name string, isActive bool) (Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Organization{}, httpx.ErrValidation
	}
	var org Organization
	err := r.pool.QueryRow(ctx, `
		UPDATE organizations SET name = $2, is_active = $3 WHERE id = $1
		RETURNING id, name, slug, is_active, created_at`,
		id, name, isActive).
		Scan(&org.ID, &org.Name, &org.Slug, &org.IsActive, &org.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Organization{}, shared.ErrNotFound
	}
	return org, err
}
