package users

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weighops/weighops/internal/auth"
	"github.com/weighops/weighops/internal/platform/httpx"
	"github.com/weighops/weighops/internal/shared"
)

type fakeStore struct {
	users  map[uuid.UUID]User
	hashes map[uuid.UUID]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[uuid.UUID]User), hashes: make(map[uuid.UUID]string)}
}

func (f *fakeStore) ListByOrg(_ context.Context, orgID uuid.UUID) ([]User, error) {
	out := make([]User, 0)
	for _, u := range f.users {
		if u.OrgID == orgID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id uuid.UUID) (User, error) {
	u, ok := f.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) Create(_ context.Context, u User, passwordHash string) (User, error) {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return User{}, shared.ErrDuplicate
		}
	}
	f.users[u.ID] = u
	f.hashes[u.ID] = passwordHash
	return u, nil
}

func (f *fakeStore) Update(_ context.Context, id uuid.UUID, name string, roleID uuid.UUID, isActive bool) (User, error) {
	u, ok := f.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	u.Name, u.RoleID, u.IsActive = name, roleID, isActive
	f.users[id] = u
	return u, nil
}

func (f *fakeStore) SetPassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	if _, ok := f.users[id]; !ok {
		return shared.ErrNotFound
	}
	f.hashes[id] = passwordHash
	return nil
}

func TestCreateHashesPassword(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)

	u, err := svc.Create(context.Background(), "Ops@Example.com", " Siti ", "s3cret-pass", uuid.New(), uuid.New())
	require.NoError(t, err)

	assert.Equal(t, "ops@example.com", u.Email)
	assert.Equal(t, "Siti", u.Name)
	assert.True(t, u.IsActive)

	hash := store.hashes[u.ID]
	require.True(t, strings.HasPrefix(hash, "$argon2id$"), "expected argon2id hash, got %q", hash)
	ok, err := auth.VerifyPassword("s3cret-pass", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateRejectsBlankFields(t *testing.T) {
	svc := NewService(newFakeStore())

	_, err := svc.Create(context.Background(), "  ", "Siti", "pw", uuid.New(), uuid.New())
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(context.Background(), "a@b.c", "  ", "pw", uuid.New(), uuid.New())
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateDuplicateEmail(t *testing.T) {
	svc := NewService(newFakeStore())
	orgID := uuid.New()

	_, err := svc.Create(context.Background(), "a@b.c", "First", "pw", uuid.New(), orgID)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), "A@B.C", "Second", "pw", uuid.New(), orgID)
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestUpdateChangesRole(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)

	u, err := svc.Create(context.Background(), "a@b.c", "Siti", "pw", uuid.New(), uuid.New())
	require.NoError(t, err)

	newRole := uuid.New()
	updated, err := svc.Update(context.Background(), u.ID, "Siti A", newRole, false)
	require.NoError(t, err)
	assert.Equal(t, newRole, updated.RoleID)
	assert.False(t, updated.IsActive)
}

func TestChangePasswordRotatesHash(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)

	u, err := svc.Create(context.Background(), "a@b.c", "Siti", "old-pass", uuid.New(), uuid.New())
	require.NoError(t, err)
	oldHash := store.hashes[u.ID]

	require.NoError(t, svc.ChangePassword(context.Background(), u.ID, "new-pass"))
	assert.NotEqual(t, oldHash, store.hashes[u.ID])
	ok, err := auth.VerifyPassword("new-pass", store.hashes[u.ID])
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, svc.ChangePassword(context.Background(), uuid.New(), "x"), shared.ErrNotFound)
}
