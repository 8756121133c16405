package shifts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrShiftOpen is returned when a station already has an open shift.
var ErrShiftOpen = errors.New("shifts: station already has an open shift")

// ErrShiftClosed is returned when an operation targets a shift that has
// already been closed.
var ErrShiftClosed = errors.New("shifts: shift already closed")

// Shift is a working window at a weighbridge station. A station has at
// most one open shift at a time.
type Shift struct {
	ID        uuid.UUID  `json:"id"`
	StationID uuid.UUID  `json:"station_id"`
	OpenedBy  uuid.UUID  `json:"opened_by"`
	ClosedBy  *uuid.UUID `json:"closed_by,omitempty"`
	OpenedAt  time.Time  `json:"opened_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

// Open reports whether the shift is still running.
func (s Shift) Open() bool { return s.ClosedAt == nil }

// Driver is a registered vehicle driver that can be assigned to shifts.
type Driver struct {
	ID        uuid.UUID `json:"id"`
	OrgID     uuid.UUID `json:"org_id"`
	Name      string    `json:"name"`
	License   string    `json:"license"`
	Phone     string    `json:"phone,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Assignment links a driver to a shift.
type Assignment struct {
	ShiftID    uuid.UUID `json:"shift_id"`
	DriverID   uuid.UUID `json:"driver_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Store is the persistence surface the service depends on.
type Store interface {
	OpenShift(ctx context.Context, stationID, openedBy uuid.UUID, notes string) (Shift, error)
	CloseShift(ctx context.Context, id, closedBy uuid.UUID) (Shift, error)
	ShiftByID(ctx context.Context, id uuid.UUID) (Shift, error)
	OpenShiftForStation(ctx context.Context, stationID uuid.UUID) (Shift, error)
	ListShifts(ctx context.Context, stationID uuid.UUID, limit, offset int) ([]Shift, error)

	CreateDriver(ctx context.Context, orgID uuid.UUID, name, license, phone string) (Driver, error)
	DriverByID(ctx context.Context, id uuid.UUID) (Driver, error)
	ListDrivers(ctx context.Context, orgID uuid.UUID) ([]Driver, error)
	UpdateDriver(ctx context.Context, id uuid.UUID, name, license, phone string, isActive bool) (Driver, error)

	Assign(ctx context.Context, shiftID, driverID uuid.UUID) (Assignment, error)
	Unassign(ctx context.Context, shiftID, driverID uuid.UUID) error
	Assignments(ctx context.Context, shiftID uuid.UUID) ([]Assignment, error)
}
