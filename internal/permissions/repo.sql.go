package permissions

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weighops/weighops/internal/authz"
	"github.com/weighops/weighops/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the permission
// catalog. Its read methods satisfy authz.Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const permissionColumns = `id, code, name, category, description, is_active, created_at`

// mapUniqueViolation translates a unique-constraint violation into
// shared.ErrDuplicate and passes every other error through.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}

func scanPermission(row pgx.Row) (authz.Permission, error) {
	var p authz.Permission
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Category, &p.Description, &p.IsActive, &p.CreatedAt)
	return p, err
}

func collectPermissions(rows pgx.Rows) ([]authz.Permission, error) {
	defer rows.Close()
	perms := []authz.Permission{}
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// ByID fetches one permission by primary key.
func (r *Repository) ByID(ctx context.Context, id uuid.UUID) (authz.Permission, error) {
	p, err := scanPermission(r.pool.QueryRow(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return authz.Permission{}, authz.ErrNotFound
	}
	return p, err
}

// ByCode fetches one permission by its stable code.
func (r *Repository) ByCode(ctx context.Context, code string) (authz.Permission, error) {
	p, err := scanPermission(r.pool.QueryRow(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE code = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return authz.Permission{}, authz.ErrNotFound
	}
	return p, err
}

// ByCategory lists permissions in one category.
func (r *Repository) ByCategory(ctx context.Context, category string) ([]authz.Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE category = $1 ORDER BY code`, category)
	if err != nil {
		return nil, err
	}
	return collectPermissions(rows)
}

// All lists every permission ordered by code.
func (r *Repository) All(ctx context.Context) ([]authz.Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+permissionColumns+` FROM permissions ORDER BY code`)
	if err != nil {
		return nil, err
	}
	return collectPermissions(rows)
}

// AllActive lists active permissions ordered by code.
func (r *Repository) AllActive(ctx context.Context) ([]authz.Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+permissionColumns+` FROM permissions WHERE is_active ORDER BY code`)
	if err != nil {
		return nil, err
	}
	return collectPermissions(rows)
}

// ForRole lists the permissions assigned to a role.
func (r *Repository) ForRole(ctx context.Context, roleID uuid.UUID) ([]authz.Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.code, p.name, p.category, p.description, p.is_active, p.created_at
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.code`, roleID)
	if err != nil {
		return nil, err
	}
	return collectPermissions(rows)
}

// Create inserts a new permission.
func (r *Repository) Create(ctx context.Context, p authz.Permission) (authz.Permission, error) {
	created, err := scanPermission(r.pool.QueryRow(ctx, `
		INSERT INTO permissions (id, code, name, category, description, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING `+permissionColumns,
		p.ID, p.Code, p.Name, p.Category, p.Description, p.IsActive))
	if err != nil {
		return authz.Permission{}, mapUniqueViolation(err)
	}
	return created, nil
}

// Update modifies name, category, description and active flag by code.
func (r *Repository) Update(ctx context.Context, p authz.Permission) (authz.Permission, error) {
	updated, err := scanPermission(r.pool.QueryRow(ctx, `
		UPDATE permissions
		SET name = $2, category = $3, description = $4, is_active = $5
		WHERE code = $1
		RETURNING `+permissionColumns,
		p.Code, p.Name, p.Category, p.Description, p.IsActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return authz.Permission{}, authz.ErrNotFound
	}
	if err != nil {
		return authz.Permission{}, err
	}
	return updated, nil
}

// Deactivate flips a permission inactive without deleting grants.
func (r *Repository) Deactivate(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE permissions SET is_active = FALSE WHERE code = $1`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authz.ErrNotFound
	}
	return nil
}
