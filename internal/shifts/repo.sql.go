package shifts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weighops/weighops/internal/shared"
)

// PgStore persists shifts, drivers and assignments in Postgres.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore constructs a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const shiftColumns = `id, station_id, opened_by, closed_by, opened_at, closed_at, coalesce(notes, '')`

func scanShift(row pgx.Row) (Shift, error) {
	var s Shift
	err := row.Scan(&s.ID, &s.StationID, &s.OpenedBy, &s.ClosedBy, &s.OpenedAt, &s.ClosedAt, &s.Notes)
	return s, err
}

func (r *PgStore) OpenShift(ctx context.Context, stationID, openedBy uuid.UUID, notes string) (Shift, error) {
	// The partial unique index on (station_id) where closed_at is null
	// enforces the one-open-shift rule at the database level.
	row := r.pool.QueryRow(ctx, `
		INSERT INTO shifts (id, station_id, opened_by, opened_at, notes)
		VALUES ($1, $2, $3, now(), nullif($4, ''))
		RETURNING `+shiftColumns,
		uuid.New(), stationID, openedBy, notes,
	)
	s, err := scanShift(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Shift{}, ErrShiftOpen
		}
		return Shift{}, fmt.Errorf("open shift: %w", err)
	}
	return s, nil
}

func (r *PgStore) CloseShift(ctx context.Context, id, closedBy uuid.UUID) (Shift, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE shifts
		SET closed_by = $2, closed_at = now()
		WHERE id = $1 AND closed_at IS NULL
		RETURNING `+shiftColumns,
		id, closedBy,
	)
	s, err := scanShift(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the shift does not exist or it is already closed.
		if _, lookupErr := r.ShiftByID(ctx, id); lookupErr == nil {
			return Shift{}, ErrShiftClosed
		}
		return Shift{}, shared.ErrNotFound
	}
	if err != nil {
		return Shift{}, fmt.Errorf("close shift: %w", err)
	}
	return s, nil
}

func (r *PgStore) ShiftByID(ctx context.Context, id uuid.UUID) (Shift, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id)
	s, err := scanShift(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Shift{}, shared.ErrNotFound
	}
	if err != nil {
		return Shift{}, fmt.Errorf("shift by id: %w", err)
	}
	return s, nil
}

func (r *PgStore) OpenShiftForStation(ctx context.Context, stationID uuid.UUID) (Shift, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE station_id = $1 AND closed_at IS NULL`,
		stationID,
	)
	s, err := scanShift(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Shift{}, shared.ErrNotFound
	}
	if err != nil {
		return Shift{}, fmt.Errorf("open shift for station: %w", err)
	}
	return s, nil
}

func (r *PgStore) ListShifts(ctx context.Context, stationID uuid.UUID, limit, offset int) ([]Shift, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE station_id = $1
		ORDER BY opened_at DESC
		LIMIT $2 OFFSET $3`,
		stationID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	defer rows.Close()

	out := make([]Shift, 0)
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shift: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

const driverColumns = `id, org_id, name, license, coalesce(phone, ''), is_active, created_at`

func scanDriver(row pgx.Row) (Driver, error) {
	var d Driver
	err := row.Scan(&d.ID, &d.OrgID, &d.Name, &d.License, &d.Phone, &d.IsActive, &d.CreatedAt)
	return d, err
}

func (r *PgStore) CreateDriver(ctx context.Context, orgID uuid.UUID, name, license, phone string) (Driver, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO drivers (id, org_id, name, license, phone, is_active, created_at)
		VALUES ($1, $2, $3, $4, nullif($5, ''), true, now())
		RETURNING `+driverColumns,
		uuid.New(), orgID, name, license, phone,
	)
	d, err := scanDriver(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Driver{}, shared.ErrDuplicate
		}
		return Driver{}, fmt.Errorf("create driver: %w", err)
	}
	return d, nil
}

func (r *PgStore) DriverByID(ctx context.Context, id uuid.UUID) (Driver, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id)
	d, err := scanDriver(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Driver{}, shared.ErrNotFound
	}
	if err != nil {
		return Driver{}, fmt.Errorf("driver by id: %w", err)
	}
	return d, nil
}

func (r *PgStore) ListDrivers(ctx context.Context, orgID uuid.UUID) ([]Driver, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+driverColumns+` FROM drivers
		WHERE org_id = $1
		ORDER BY name`,
		orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()

	out := make([]Driver, 0)
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PgStore) UpdateDriver(ctx context.Context, id uuid.UUID, name, license, phone string, isActive bool) (Driver, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE drivers
		SET name = $2, license = $3, phone = nullif($4, ''), is_active = $5
		WHERE id = $1
		RETURNING `+driverColumns,
		id, name, license, phone, isActive,
	)
	d, err := scanDriver(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Driver{}, shared.ErrNotFound
	}
	if err != nil {
		return Driver{}, fmt.Errorf("update driver: %w", err)
	}
	return d, nil
}

func (r *PgStore) Assign(ctx context.Context, shiftID, driverID uuid.UUID) (Assignment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO shift_drivers (shift_id, driver_id, assigned_at)
		VALUES ($1, $2, now())
		ON CONFLICT (shift_id, driver_id) DO UPDATE SET assigned_at = shift_drivers.assigned_at
		RETURNING shift_id, driver_id, assigned_at`,
		shiftID, driverID,
	)
	var a Assignment
	if err := row.Scan(&a.ShiftID, &a.DriverID, &a.AssignedAt); err != nil {
		return Assignment{}, fmt.Errorf("assign driver: %w", err)
	}
	return a, nil
}

func (r *PgStore) Unassign(ctx context.Context, shiftID, driverID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM shift_drivers WHERE shift_id = $1 AND driver_id = $2`, shiftID, driverID)
	if err != nil {
		return fmt.Errorf("unassign driver: %w", err)
	}
	return nil
}

func (r *PgStore) Assignments(ctx context.Context, shiftID uuid.UUID) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT shift_id, driver_id, assigned_at FROM shift_drivers
		WHERE shift_id = $1
		ORDER BY assigned_at`,
		shiftID,
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	out := make([]Assignment, 0)
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ShiftID, &a.DriverID, &a.AssignedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
