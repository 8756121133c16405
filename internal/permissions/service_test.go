package permissions

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
	"github.com/weighops/weighops/internal/platform/httpx"
)

// catalogStore backs both the authz.Store reads and the Writer mutations.
type catalogStore struct {
	perms    map[string]authz.Permission
	allCalls int
}

func newCatalogStore(perms ...authz.Permission) *catalogStore {
	s := &catalogStore{perms: make(map[string]authz.Permission)}
	for _, p := range perms {
		s.perms[p.Code] = p
	}
	return s
}

func (s *catalogStore) ByID(ctx context.Context, id uuid.UUID) (authz.Permission, error) {
	for _, p := range s.perms {
		if p.ID == id {
			return p, nil
		}
	}
	return authz.Permission{}, authz.ErrNotFound
}

func (s *catalogStore) ByCode(ctx context.Context, code string) (authz.Permission, error) {
	p, ok := s.perms[code]
	if !ok {
		return authz.Permission{}, authz.ErrNotFound
	}
	return p, nil
}

func (s *catalogStore) ByCategory(ctx context.Context, category string) ([]authz.Permission, error) {
	var out []authz.Permission
	for _, p := range s.perms {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *catalogStore) All(ctx context.Context) ([]authz.Permission, error) {
	s.allCalls++
	out := make([]authz.Permission, 0, len(s.perms))
	for _, p := range s.perms {
		out = append(out, p)
	}
	return out, nil
}

func (s *catalogStore) AllActive(ctx context.Context) ([]authz.Permission, error) {
	var out []authz.Permission
	for _, p := range s.perms {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *catalogStore) ForRole(ctx context.Context, roleID uuid.UUID) ([]authz.Permission, error) {
	return nil, nil
}

func (s *catalogStore) Create(ctx context.Context, p authz.Permission) (authz.Permission, error) {
	if _, exists := s.perms[p.Code]; exists {
		return authz.Permission{}, httpx.ErrDuplicate
	}
	p.CreatedAt = time.Now()
	s.perms[p.Code] = p
	return p, nil
}

func (s *catalogStore) Update(ctx context.Context, p authz.Permission) (authz.Permission, error) {
	existing, ok := s.perms[p.Code]
	if !ok {
		return authz.Permission{}, authz.ErrNotFound
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	s.perms[p.Code] = p
	return p, nil
}

func (s *catalogStore) Deactivate(ctx context.Context, code string) error {
	p, ok := s.perms[code]
	if !ok {
		return authz.ErrNotFound
	}
	p.IsActive = false
	s.perms[code] = p
	return nil
}

func newTestService(t *testing.T) (*Service, *catalogStore, *miniredis.Miniredis) {
	t.Helper()
	store := newCatalogStore(authz.Permission{
		ID: uuid.New(), Code: "weighing.create", Name: "Create weighing",
		Category: "weighing", IsActive: true, CreatedAt: time.Now(),
	})
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.DiscardHandler)
	pc := authz.NewPermissionCache(store, cache.NewKV(client), logger)
	return NewService(store, pc, logger), store, mr
}

func TestCreateInvalidatesAggregates(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	// Warm the aggregate entry.
	_, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, store.allCalls)

	_, err = svc.Create(ctx, "weighing.approve", "Approve weighing", "weighing", "")
	require.NoError(t, err)

	// The aggregate cache was swept, so the next list re-queries and sees
	// the new permission.
	perms, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, store.allCalls)
	codes := make([]string, 0, len(perms))
	for _, p := range perms {
		codes = append(codes, p.Code)
	}
	assert.Contains(t, codes, "weighing.approve")
}

func TestCreateRejectsPipeInCode(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), "weighing|create", "x", "weighing", "")
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(context.Background(), "  ", "x", "weighing", "")
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateInvalidatesCodeEntry(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	before, err := svc.GetByCode(ctx, "weighing.create")
	require.NoError(t, err)
	require.Equal(t, "Create weighing", before.Name)

	_, err = svc.Update(ctx, "weighing.create", "Record weighing", "weighing", "", true)
	require.NoError(t, err)

	// A stale cache entry must not satisfy the follow-up read.
	after, err := svc.GetByCode(ctx, "weighing.create")
	require.NoError(t, err)
	assert.Equal(t, "Record weighing", after.Name)
}

func TestDeactivateRemovesFromActiveList(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)

	require.NoError(t, svc.Deactivate(ctx, "weighing.create"))

	active, err = svc.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestInvalidationSurvivesCacheOutage(t *testing.T) {
	svc, _, mr := newTestService(t)
	ctx := context.Background()
	mr.Close()

	// Mutations succeed even when the cache is down; staleness is bounded
	// by the TTL.
	_, err := svc.Create(ctx, "weighing.export", "Export weighings", "weighing", "")
	require.NoError(t, err)
}
