// Package stations manages weighbridge stations and their departments.
package stations

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

// Station is a physical weighbridge site within an organization.
type Station struct {
	ID        uuid.UUID `json:"id"`
	OrgID     uuid.UUID `json:"org_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Department groups station staff, e.g. gatehouse or dispatch.
type Department struct {
	ID        uuid.UUID `json:"id"`
	StationID uuid.UUID `json:"station_id"`
	Name      string    `json:"name"`
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

const stationColumns = `id, org_id, code, name, location, is_active, created_at`

func scanStation(row pgx.Row) (Station, error) {
	var s Station
	err := row.Scan(&s.ID, &s.OrgID, &s.Code, &s.Name, &s.Location, &s.IsActive, &s.CreatedAt)
	return s, err
}

// ListByOrg returns an organization's stations ordered by code.
func (r *Repository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]Station, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+stationColumns+` FROM stations WHERE org_id = $1 ORDER BY code`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Station
	for rows.Next() {
		s, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Get fetches one station.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Station, error) {
	s, err := scanStation(r.pool.QueryRow(ctx,
		`SELECT `+stationColumns+` FROM stations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Station{}, shared.ErrNotFound
	}
	return s, err
}

// Create inserts a station.
func (r *Repository) Create(ctx context.Context, orgID uuid.UUID, code, name, location string) (Station, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return Station{}, httpx.ErrValidation
	}
	s, err := scanStation(r.pool.QueryRow(ctx, `
		INSERT INTO stations (id, org_id, code, name, location, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, NOW())
		RETURNING `+stationColumns,
		uuid.New(), orgID, code, name, strings.TrimSpace(location)))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Station{}, shared.ErrDuplicate
		}
		return Station{}, err
	}
	return s, nil
}

// Update modifies a station.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, name, location string, isActive bool) (Station, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Station{}, httpx.ErrValidation
	}
	s, err := scanStation(r.pool.QueryRow(ctx, `
		UPDATE stations SET name = $2, location = $3, is_active = $4 WHERE id = $1
		RETURNING `+stationColumns,
		id, name, strings.TrimSpace(location), isActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return Station{}, shared.ErrNotFound
	}
	return s, err
}

// Departments lists a station's departments.
func (r *Repository) Departments(ctx context.Context, stationID uuid.UUID) ([]Department, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, station_id, name, created_at FROM departments WHERE station_id = $1 ORDER BY name`,
		stationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.StationID, &d.Name, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// AddDepartment creates a department under a station.
func (r *Repository) AddDepartment(ctx context.Context, stationID uuid.UUID, name string) (Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Department{}, httpx.ErrValidation
	}
	var d Department
	err := r.pool.QueryRow(ctx, `
		INSERT INTO departments (id, station_id, name, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, station_id, name, created_at`,
		uuid.New(), stationID, name).
		Scan(&d.ID, &d.StationID, &d.Name, &d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Department{}, shared.ErrDuplicate
		}
		return Department{}, err
	}
	return d, nil
}
