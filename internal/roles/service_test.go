package roles

import (
	"context"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weighops/weighops/internal/authz"
	"github.com/weighops/weighops/internal/platform/cache"
	"github.com/weighops/weighops/internal/shared"
)

// mockStore implements both roles.Store and authz.Store so the same grant
// state backs the service and the permission cache.
type mockStore struct {
	roles        map[uuid.UUID]Role
	permissions  map[uuid.UUID]authz.Permission
	grants       map[uuid.UUID]map[uuid.UUID]struct{}
	forRoleCalls int
}

func newMockStore() *mockStore {
	return &mockStore{
		roles:       make(map[uuid.UUID]Role),
		permissions: make(map[uuid.UUID]authz.Permission),
		grants:      make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}
}

func (m *mockStore) addRole(name string) Role {
	role := Role{ID: uuid.New(), Name: name, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.roles[role.ID] = role
	return role
}

func (m *mockStore) addPermission(code string, active bool) authz.Permission {
	p := authz.Permission{ID: uuid.New(), Code: code, Name: code, Category: "weighing", IsActive: active}
	m.permissions[p.ID] = p
	return p
}

func (m *mockStore) ListRoles(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockStore) GetRole(ctx context.Context, id uuid.UUID) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (m *mockStore) CreateRole(ctx context.Context, name, description string) (Role, error) {
	role := Role{ID: uuid.New(), Name: name, Description: description}
	m.roles[role.ID] = role
	return role, nil
}

func (m *mockStore) UpdateRole(ctx context.Context, id uuid.UUID, name, description string) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	role.Name, role.Description = name, description
	m.roles[id] = role
	return role, nil
}

func (m *mockStore) DeleteRole(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.roles, id)
	delete(m.grants, id)
	return nil
}

func (m *mockStore) PermissionIDs(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id := range m.grants[roleID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockStore) ActivePermissionIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var active []uuid.UUID
	for _, id := range ids {
		if p, ok := m.permissions[id]; ok && p.IsActive {
			active = append(active, id)
		}
	}
	return active, nil
}

func (m *mockStore) Attach(ctx context.Context, roleID, permissionID uuid.UUID) error {
	if m.grants[roleID] == nil {
		m.grants[roleID] = make(map[uuid.UUID]struct{})
	}
	m.grants[roleID][permissionID] = struct{}{}
	return nil
}

func (m *mockStore) Detach(ctx context.Context, roleID, permissionID uuid.UUID) error {
	delete(m.grants[roleID], permissionID)
	return nil
}

// authz.Store

func (m *mockStore) ByID(ctx context.Context, id uuid.UUID) (authz.Permission, error) {
	p, ok := m.permissions[id]
	if !ok {
		return authz.Permission{}, authz.ErrNotFound
	}
	return p, nil
}

func (m *mockStore) ByCode(ctx context.Context, code string) (authz.Permission, error) {
	for _, p := range m.permissions {
		if p.Code == code {
			return p, nil
		}
	}
	return authz.Permission{}, authz.ErrNotFound
}

func (m *mockStore) ByCategory(ctx context.Context, category string) ([]authz.Permission, error) {
	return nil, nil
}

func (m *mockStore) All(ctx context.Context) ([]authz.Permission, error) {
	return nil, nil
}

func (m *mockStore) AllActive(ctx context.Context) ([]authz.Permission, error) {
	return nil, nil
}

func (m *mockStore) ForRole(ctx context.Context, roleID uuid.UUID) ([]authz.Permission, error) {
	m.forRoleCalls++
	var out []authz.Permission
	for id := range m.grants[roleID] {
		out = append(out, m.permissions[id])
	}
	return out, nil
}

func newTestService(t *testing.T) (*Service, *mockStore, *miniredis.Miniredis) {
	t.Helper()
	store := newMockStore()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.DiscardHandler)
	pc := authz.NewPermissionCache(store, cache.NewKV(client), logger)
	return NewService(store, pc, logger), store, mr
}

func TestSetPermissionsReconcilesGrants(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	role := store.addRole("operator")
	a := store.addPermission("weighing.create", true)
	b := store.addPermission("weighing.view", true)
	c := store.addPermission("shift.close", true)

	require.NoError(t, svc.SetPermissions(ctx, role.ID, []uuid.UUID{a.ID, b.ID}))
	granted, err := svc.Permissions(ctx, role.ID)
	require.NoError(t, err)
	assert.Len(t, granted, 2)

	// Replace b with c; a stays attached.
	require.NoError(t, svc.SetPermissions(ctx, role.ID, []uuid.UUID{a.ID, c.ID}))
	granted, err = svc.Permissions(ctx, role.ID)
	require.NoError(t, err)
	codes := make([]string, 0, len(granted))
	for _, p := range granted {
		codes = append(codes, p.Code)
	}
	assert.ElementsMatch(t, []string{"weighing.create", "shift.close"}, codes)
}

func TestSetPermissionsInvalidatesRoleCache(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	role := store.addRole("operator")
	a := store.addPermission("weighing.create", true)
	require.NoError(t, svc.SetPermissions(ctx, role.ID, []uuid.UUID{a.ID}))

	// Warm the role's cached permission set.
	_, err := svc.Permissions(ctx, role.ID)
	require.NoError(t, err)
	calls := store.forRoleCalls

	b := store.addPermission("weighing.view", true)
	require.NoError(t, svc.SetPermissions(ctx, role.ID, []uuid.UUID{a.ID, b.ID}))

	// The cached set was dropped, so the next read re-queries and sees the
	// new grant.
	granted, err := svc.Permissions(ctx, role.ID)
	require.NoError(t, err)
	assert.Equal(t, calls+1, store.forRoleCalls)
	assert.Len(t, granted, 2)
}

func TestSetPermissionsSkipsInactivePermissions(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	role := store.addRole("operator")
	active := store.addPermission("weighing.create", true)
	retired := store.addPermission("legacy.export", false)

	require.NoError(t, svc.SetPermissions(ctx, role.ID, []uuid.UUID{active.ID, retired.ID}))
	granted, err := svc.Permissions(ctx, role.ID)
	require.NoError(t, err)
	require.Len(t, granted, 1)
	assert.Equal(t, "weighing.create", granted[0].Code)
}

func TestSetPermissionsUnknownRole(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.SetPermissions(context.Background(), uuid.New(), nil)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateRequiresName(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), "  ", "")
	assert.Error(t, err)
}
