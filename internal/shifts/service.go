package shifts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/weighops/weighops/internal/platform/httpx"
	"github.com/weighops/weighops/internal/shared"
)

// Service applies shift rules on top of the store: one open shift per
// station, closed shifts are immutable, and only active drivers can be
// assigned.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Open starts a shift at the station. Fails with ErrShiftOpen when the
// station already has one running.
func (s *Service) Open(ctx context.Context, stationID, openedBy uuid.UUID, notes string) (Shift, error) {
	shift, err := s.store.OpenShift(ctx, stationID, openedBy, notes)
	if err != nil {
		return Shift{}, err
	}
	s.logger.Info("shift opened",
		slog.String("shift_id", shift.ID.String()),
		slog.String("station_id", stationID.String()),
		slog.String("opened_by", openedBy.String()),
	)
	return shift, nil
}

// Close ends a running shift.
func (s *Service) Close(ctx context.Context, id, closedBy uuid.UUID) (Shift, error) {
	shift, err := s.store.CloseShift(ctx, id, closedBy)
	if err != nil {
		return Shift{}, err
	}
	s.logger.Info("shift closed",
		slog.String("shift_id", shift.ID.String()),
		slog.String("closed_by", closedBy.String()),
	)
	return shift, nil
}

// Current returns the open shift at the station, or shared.ErrNotFound
// when none is running.
func (s *Service) Current(ctx context.Context, stationID uuid.UUID) (Shift, error) {
	return s.store.OpenShiftForStation(ctx, stationID)
}

// History lists past and present shifts for the station, newest first.
func (s *Service) History(ctx context.Context, stationID uuid.UUID, p shared.Pagination) ([]Shift, error) {
	return s.store.ListShifts(ctx, stationID, p.PerPage, p.Offset())
}

// AssignDriver attaches an active driver to an open shift. Assigning an
// already assigned driver is a no-op.
func (s *Service) AssignDriver(ctx context.Context, shiftID, driverID uuid.UUID) (Assignment, error) {
	shift, err := s.store.ShiftByID(ctx, shiftID)
	if err != nil {
		return Assignment{}, err
	}
	if !shift.Open() {
		return Assignment{}, ErrShiftClosed
	}
	driver, err := s.store.DriverByID(ctx, driverID)
	if err != nil {
		return Assignment{}, err
	}
	if !driver.IsActive {
		return Assignment{}, fmt.Errorf("%w: driver %s is inactive", httpx.ErrValidation, driver.ID)
	}
	return s.store.Assign(ctx, shiftID, driverID)
}

// UnassignDriver removes a driver from an open shift.
func (s *Service) UnassignDriver(ctx context.Context, shiftID, driverID uuid.UUID) error {
	shift, err := s.store.ShiftByID(ctx, shiftID)
	if err != nil {
		return err
	}
	if !shift.Open() {
		return ErrShiftClosed
	}
	return s.store.Unassign(ctx, shiftID, driverID)
}

// Roster lists the drivers assigned to a shift.
func (s *Service) Roster(ctx context.Context, shiftID uuid.UUID) ([]Assignment, error) {
	if _, err := s.store.ShiftByID(ctx, shiftID); err != nil {
		return nil, err
	}
	return s.store.Assignments(ctx, shiftID)
}

// RegisterDriver adds a driver record to the organization.
func (s *Service) RegisterDriver(ctx context.Context, orgID uuid.UUID, name, license, phone string) (Driver, error) {
	name = strings.TrimSpace(name)
	license = strings.TrimSpace(license)
	if name == "" || license == "" {
		return Driver{}, fmt.Errorf("%w: driver name and license are required", httpx.ErrValidation)
	}
	return s.store.CreateDriver(ctx, orgID, name, license, phone)
}

// Drivers lists the organization's drivers.
func (s *Service) Drivers(ctx context.Context, orgID uuid.UUID) ([]Driver, error) {
	return s.store.ListDrivers(ctx, orgID)
}

// UpdateDriver edits a driver record.
func (s *Service) UpdateDriver(ctx context.Context, id uuid.UUID, name, license, phone string, isActive bool) (Driver, error) {
	name = strings.TrimSpace(name)
	license = strings.TrimSpace(license)
	if name == "" || license == "" {
		return Driver{}, fmt.Errorf("%w: driver name and license are required", httpx.ErrValidation)
	}
	return s.store.UpdateDriver(ctx, id, name, license, phone, isActive)
}

// IsConflict reports whether err is one of the shift state conflicts.
func IsConflict(err error) bool {
	return errors.Is(err, ErrShiftOpen) || errors.Is(err, ErrShiftClosed)
}
