package shifts

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weighops/weighops/internal/platform/httpx"
	"github.com/weighops/weighops/internal/shared"
)

type memStore struct {
	shifts      map[uuid.UUID]Shift
	drivers     map[uuid.UUID]Driver
	assignments map[uuid.UUID][]Assignment
	assignCalls int
}

func newMemStore() *memStore {
	return &memStore{
		shifts:      make(map[uuid.UUID]Shift),
		drivers:     make(map[uuid.UUID]Driver),
		assignments: make(map[uuid.UUID][]Assignment),
	}
}

func (m *memStore) OpenShift(_ context.Context, stationID, openedBy uuid.UUID, notes string) (Shift, error) {
	for _, s := range m.shifts {
		if s.StationID == stationID && s.Open() {
			return Shift{}, ErrShiftOpen
		}
	}
	s := Shift{ID: uuid.New(), StationID: stationID, OpenedBy: openedBy, OpenedAt: time.Now(), Notes: notes}
	m.shifts[s.ID] = s
	return s, nil
}

func (m *memStore) CloseShift(_ context.Context, id, closedBy uuid.UUID) (Shift, error) {
	s, ok := m.shifts[id]
	if !ok {
		return Shift{}, shared.ErrNotFound
	}
	if !s.Open() {
		return Shift{}, ErrShiftClosed
	}
	now := time.Now()
	s.ClosedAt = &now
	s.ClosedBy = &closedBy
	m.shifts[id] = s
	return s, nil
}

func (m *memStore) ShiftByID(_ context.Context, id uuid.UUID) (Shift, error) {
	s, ok := m.shifts[id]
	if !ok {
		return Shift{}, shared.ErrNotFound
	}
	return s, nil
}

func (m *memStore) OpenShiftForStation(_ context.Context, stationID uuid.UUID) (Shift, error) {
	for _, s := range m.shifts {
		if s.StationID == stationID && s.Open() {
			return s, nil
		}
	}
	return Shift{}, shared.ErrNotFound
}

func (m *memStore) ListShifts(_ context.Context, stationID uuid.UUID, _, _ int) ([]Shift, error) {
	out := make([]Shift, 0)
	for _, s := range m.shifts {
		if s.StationID == stationID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) CreateDriver(_ context.Context, orgID uuid.UUID, name, license, phone string) (Driver, error) {
	d := Driver{ID: uuid.New(), OrgID: orgID, Name: name, License: license, Phone: phone, IsActive: true, CreatedAt: time.Now()}
	m.drivers[d.ID] = d
	return d, nil
}

func (m *memStore) DriverByID(_ context.Context, id uuid.UUID) (Driver, error) {
	d, ok := m.drivers[id]
	if !ok {
		return Driver{}, shared.ErrNotFound
	}
	return d, nil
}

func (m *memStore) ListDrivers(_ context.Context, orgID uuid.UUID) ([]Driver, error) {
	out := make([]Driver, 0)
	for _, d := range m.drivers {
		if d.OrgID == orgID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) UpdateDriver(_ context.Context, id uuid.UUID, name, license, phone string, isActive bool) (Driver, error) {
	d, ok := m.drivers[id]
	if !ok {
		return Driver{}, shared.ErrNotFound
	}
	d.Name, d.License, d.Phone, d.IsActive = name, license, phone, isActive
	m.drivers[id] = d
	return d, nil
}

func (m *memStore) Assign(_ context.Context, shiftID, driverID uuid.UUID) (Assignment, error) {
	m.assignCalls++
	a := Assignment{ShiftID: shiftID, DriverID: driverID, AssignedAt: time.Now()}
	m.assignments[shiftID] = append(m.assignments[shiftID], a)
	return a, nil
}

func (m *memStore) Unassign(_ context.Context, shiftID, driverID uuid.UUID) error {
	kept := m.assignments[shiftID][:0]
	for _, a := range m.assignments[shiftID] {
		if a.DriverID != driverID {
			kept = append(kept, a)
		}
	}
	m.assignments[shiftID] = kept
	return nil
}

func (m *memStore) Assignments(_ context.Context, shiftID uuid.UUID) ([]Assignment, error) {
	return m.assignments[shiftID], nil
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewService(store, slog.New(slog.DiscardHandler)), store
}

func TestOpenRejectsSecondShift(t *testing.T) {
	svc, _ := newTestService(t)
	station := uuid.New()
	operator := uuid.New()

	_, err := svc.Open(context.Background(), station, operator, "")
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), station, operator, "")
	assert.ErrorIs(t, err, ErrShiftOpen)
}

func TestCloseThenReopen(t *testing.T) {
	svc, _ := newTestService(t)
	station := uuid.New()
	operator := uuid.New()

	first, err := svc.Open(context.Background(), station, operator, "morning")
	require.NoError(t, err)

	closed, err := svc.Close(context.Background(), first.ID, operator)
	require.NoError(t, err)
	require.NotNil(t, closed.ClosedAt)
	require.NotNil(t, closed.ClosedBy)
	assert.Equal(t, operator, *closed.ClosedBy)

	_, err = svc.Close(context.Background(), first.ID, operator)
	assert.ErrorIs(t, err, ErrShiftClosed)

	_, err = svc.Open(context.Background(), station, operator, "evening")
	assert.NoError(t, err)
}

func TestAssignDriverRequiresOpenShift(t *testing.T) {
	svc, store := newTestService(t)
	station := uuid.New()
	operator := uuid.New()

	shift, err := svc.Open(context.Background(), station, operator, "")
	require.NoError(t, err)
	driver, err := svc.RegisterDriver(context.Background(), uuid.New(), "Ayu Lestari", "B-9921", "")
	require.NoError(t, err)

	_, err = svc.AssignDriver(context.Background(), shift.ID, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, store.assignCalls)

	_, err = svc.Close(context.Background(), shift.ID, operator)
	require.NoError(t, err)

	_, err = svc.AssignDriver(context.Background(), shift.ID, driver.ID)
	assert.ErrorIs(t, err, ErrShiftClosed)
}

func TestAssignDriverRejectsInactive(t *testing.T) {
	svc, _ := newTestService(t)
	shift, err := svc.Open(context.Background(), uuid.New(), uuid.New(), "")
	require.NoError(t, err)

	driver, err := svc.RegisterDriver(context.Background(), uuid.New(), "Budi Santoso", "B-1204", "")
	require.NoError(t, err)
	_, err = svc.UpdateDriver(context.Background(), driver.ID, driver.Name, driver.License, "", false)
	require.NoError(t, err)

	_, err = svc.AssignDriver(context.Background(), shift.ID, driver.ID)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestAssignDriverUnknownShift(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.AssignDriver(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRegisterDriverValidation(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.RegisterDriver(context.Background(), uuid.New(), "  ", "B-1", "")
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.RegisterDriver(context.Background(), uuid.New(), "Citra", "  ", "")
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUnassignDriver(t *testing.T) {
	svc, _ := newTestService(t)
	shift, err := svc.Open(context.Background(), uuid.New(), uuid.New(), "")
	require.NoError(t, err)
	driver, err := svc.RegisterDriver(context.Background(), uuid.New(), "Dewi", "B-7", "")
	require.NoError(t, err)

	_, err = svc.AssignDriver(context.Background(), shift.ID, driver.ID)
	require.NoError(t, err)

	require.NoError(t, svc.UnassignDriver(context.Background(), shift.ID, driver.ID))

	roster, err := svc.Roster(context.Background(), shift.ID)
	require.NoError(t, err)
	assert.Empty(t, roster)
}
