package authz

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weighops/weighops/internal/shared"
)

func requestContext(id *shared.Identity) context.Context {
	ctx := context.Background()
	if id != nil {
		ctx = shared.ContextWithIdentity(ctx, id)
	}
	return shared.ContextWithPermissionMemo(ctx, &shared.PermissionMemo{})
}

func identityForRole(roleID uuid.UUID) *shared.Identity {
	return &shared.Identity{
		UserID: uuid.NewString(),
		RoleID: roleID.String(),
		OrgID:  uuid.NewString(),
		Name:   "Test User",
	}
}

func newTestVerifier(t *testing.T, store Store) *Verifier {
	t.Helper()
	pc, _ := newTestCache(t, store)
	return NewVerifier(pc, slog.New(slog.DiscardHandler))
}

func TestUserPermissionsMemoizedPerRequest(t *testing.T) {
	roleID := uuid.New()
	store := &mockStore{byRole: map[uuid.UUID][]Permission{
		roleID: {perm("a", true), perm("b", true)},
	}}
	v := newTestVerifier(t, store)
	ctx := requestContext(identityForRole(roleID))

	first, err := v.UserPermissions(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, first)
	require.Equal(t, 1, store.forRoleCalls)

	// Second resolution within the same request must not touch store or cache.
	second, err := v.UserPermissions(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.forRoleCalls)
}

func TestMemoDoesNotLeakAcrossRequests(t *testing.T) {
	roleID := uuid.New()
	store := &mockStore{byRole: map[uuid.UUID][]Permission{roleID: {perm("a", true)}}}
	pc, mr := newTestCache(t, store)
	v := NewVerifier(pc, slog.New(slog.DiscardHandler))

	_, err := v.UserPermissions(requestContext(identityForRole(roleID)))
	require.NoError(t, err)
	mr.FlushAll()

	_, err = v.UserPermissions(requestContext(identityForRole(roleID)))
	require.NoError(t, err)
	assert.Equal(t, 2, store.forRoleCalls)
}

func TestMissingRoleClaimYieldsEmptySet(t *testing.T) {
	store := &mockStore{}
	v := newTestVerifier(t, store)
	ctx := requestContext(&shared.Identity{UserID: uuid.NewString()})

	codes, err := v.UserPermissions(ctx)
	require.NoError(t, err)
	assert.Empty(t, codes)
	assert.Zero(t, store.forRoleCalls)

	ok, err := v.HasAll(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = v.HasAny(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnparseableRoleClaimYieldsEmptySet(t *testing.T) {
	store := &mockStore{}
	v := newTestVerifier(t, store)
	ctx := requestContext(&shared.Identity{UserID: uuid.NewString(), RoleID: "not-a-uuid"})

	codes, err := v.UserPermissions(ctx)
	require.NoError(t, err)
	assert.Empty(t, codes)
	assert.Zero(t, store.forRoleCalls)
}

func TestStoreFaultDegradesToEmptySet(t *testing.T) {
	roleID := uuid.New()
	store := &mockStore{failAll: true}
	v := newTestVerifier(t, store)
	ctx := requestContext(identityForRole(roleID))

	codes, err := v.UserPermissions(ctx)
	require.NoError(t, err)
	assert.Empty(t, codes)

	ok, err := v.HasPermission(ctx, "weighing.create")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAnyAllSemantics(t *testing.T) {
	roleID := uuid.New()
	store := &mockStore{byRole: map[uuid.UUID][]Permission{
		roleID: {perm("a", true), perm("b", true)},
	}}
	v := newTestVerifier(t, store)
	ctx := requestContext(identityForRole(roleID))

	ok, err := v.HasAll(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.HasAll(ctx, "a", "c")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = v.HasAny(ctx, "c", "b")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.HasAny(ctx, "c", "d")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSingleCheckEquivalentToAll(t *testing.T) {
	roleID := uuid.New()
	store := &mockStore{byRole: map[uuid.UUID][]Permission{roleID: {perm("a", true)}}}
	v := newTestVerifier(t, store)
	ctx := requestContext(identityForRole(roleID))

	single, err := v.HasPermission(ctx, "a")
	require.NoError(t, err)
	all, err := v.HasAll(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, all, single)
}

func TestMembershipIsCaseInsensitive(t *testing.T) {
	roleID := uuid.New()
	store := &mockStore{byRole: map[uuid.UUID][]Permission{
		roleID: {perm("Weighing.Create", true)},
	}}
	v := newTestVerifier(t, store)
	ctx := requestContext(identityForRole(roleID))

	ok, err := v.HasPermission(ctx, "weighing.CREATE")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEmptyCodeListIsContractViolation(t *testing.T) {
	v := newTestVerifier(t, &mockStore{})
	ctx := requestContext(identityForRole(uuid.New()))

	_, err := v.HasAny(ctx)
	assert.ErrorIs(t, err, ErrEmptyCodes)

	_, err = v.HasAll(ctx)
	assert.ErrorIs(t, err, ErrEmptyCodes)
}
