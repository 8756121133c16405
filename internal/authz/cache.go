package authz

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Cache key layout. Role and category keys are invalidated only by the
// mutation that names them; the aggregate keys are swept on any permission
// mutation.
const (
	keyActiveAll = "perm:active:all"
	keyAll       = "perm:all"

	// DefaultTTL bounds staleness for every cached permission entry.
	DefaultTTL = 3600 * time.Second
)

func keyCode(code string) string {
	return "perm:code:" + code
}

func keyCategory(category string) string {
	return "perm:category:" + category
}

func keyRole(roleID uuid.UUID) string {
	return "perm:role:" + roleID.String()
}

// LookupObserver counts cache lookups. Result is "hit", "miss" or "error".
type LookupObserver interface {
	ObserveCacheLookup(result string)
}

// PermissionCache serves permission lookups cache-first with the Store as
// the source of truth. Cache faults are never fatal on the read path: reads
// fail toward the store and write failures are logged and ignored.
type PermissionCache struct {
	store    Store
	kv       KV
	ttl      time.Duration
	logger   *slog.Logger
	group    singleflight.Group
	observer LookupObserver
}

// NewPermissionCache constructs a PermissionCache with the default TTL.
func NewPermissionCache(store Store, kv KV, logger *slog.Logger) *PermissionCache {
	return &PermissionCache{store: store, kv: kv, ttl: DefaultTTL, logger: logger}
}

// WithTTL overrides the cache TTL, mainly for tests.
func (c *PermissionCache) WithTTL(ttl time.Duration) *PermissionCache {
	c.ttl = ttl
	return c
}

// WithObserver attaches a lookup counter.
func (c *PermissionCache) WithObserver(observer LookupObserver) *PermissionCache {
	c.observer = observer
	return c
}

// ByID fetches one permission directly from the store. ID lookups see too
// little reuse to be worth a cache entry; the bypass is deliberate.
func (c *PermissionCache) ByID(ctx context.Context, id uuid.UUID) (Permission, error) {
	return c.store.ByID(ctx, id)
}

// ByCode fetches one permission, cache-first.
func (c *PermissionCache) ByCode(ctx context.Context, code string) (Permission, error) {
	key := keyCode(code)
	if payload, ok := c.cacheGet(ctx, key); ok {
		var perm Permission
		if err := json.Unmarshal(payload, &perm); err == nil {
			return perm, nil
		}
		c.logger.Warn("permission cache entry corrupt", slog.String("key", key))
	}
	perm, err := c.store.ByCode(ctx, code)
	if err != nil {
		return Permission{}, err
	}
	c.cacheSet(ctx, key, perm)
	return perm, nil
}

// ByCategory lists permissions in a category, cache-first.
func (c *PermissionCache) ByCategory(ctx context.Context, category string) ([]Permission, error) {
	return c.cachedList(ctx, keyCategory(category), func(ctx context.Context) ([]Permission, error) {
		return c.store.ByCategory(ctx, category)
	})
}

// All lists every permission, cache-first.
func (c *PermissionCache) All(ctx context.Context) ([]Permission, error) {
	return c.cachedList(ctx, keyAll, c.store.All)
}

// AllActive lists active permissions, cache-first.
func (c *PermissionCache) AllActive(ctx context.Context) ([]Permission, error) {
	return c.cachedList(ctx, keyActiveAll, c.store.AllActive)
}

// ForRole lists the permissions granted to a role, cache-first.
func (c *PermissionCache) ForRole(ctx context.Context, roleID uuid.UUID) ([]Permission, error) {
	return c.cachedList(ctx, keyRole(roleID), func(ctx context.Context) ([]Permission, error) {
		return c.store.ForRole(ctx, roleID)
	})
}

// Invalidate removes the cache entry for one code plus both aggregate keys;
// any permission mutation can change aggregate membership.
func (c *PermissionCache) Invalidate(ctx context.Context, code string) error {
	return c.kv.Del(ctx, keyCode(code), keyActiveAll, keyAll)
}

// InvalidateAll removes only the two aggregate keys. Category and role
// entries are left to TTL expiry or to the mutation that knows them; this
// narrower guarantee is intentional.
func (c *PermissionCache) InvalidateAll(ctx context.Context) error {
	return c.kv.Del(ctx, keyActiveAll, keyAll)
}

// InvalidateRole removes a single role's cached permission set. Role grant
// and revoke operations call this as part of the same logical operation.
func (c *PermissionCache) InvalidateRole(ctx context.Context, roleID uuid.UUID) error {
	return c.kv.Del(ctx, keyRole(roleID))
}

// cachedList is the shared cache-aside path for list lookups. Concurrent
// misses on the same key collapse into one store query.
func (c *PermissionCache) cachedList(ctx context.Context, key string, load func(context.Context) ([]Permission, error)) ([]Permission, error) {
	if payload, ok := c.cacheGet(ctx, key); ok {
		var perms []Permission
		if err := json.Unmarshal(payload, &perms); err == nil {
			if perms == nil {
				perms = []Permission{}
			}
			return perms, nil
		}
		c.logger.Warn("permission cache entry corrupt", slog.String("key", key))
	}

	resultChan := c.group.DoChan(key, func() (interface{}, error) {
		perms, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if perms == nil {
			perms = []Permission{}
		}
		if len(perms) > 0 {
			c.cacheSet(ctx, key, perms)
		}
		return perms, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Permission), nil
	}
}

func (c *PermissionCache) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	payload, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		c.logger.Warn("permission cache read failed", slog.String("key", key), slog.Any("error", err))
		c.observe("error")
		return nil, false
	}
	if ok {
		c.observe("hit")
	} else {
		c.observe("miss")
	}
	return payload, ok
}

func (c *PermissionCache) observe(result string) {
	if c.observer != nil {
		c.observer.ObserveCacheLookup(result)
	}
}

func (c *PermissionCache) cacheSet(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("permission cache encode failed", slog.String("key", key), slog.Any("error", err))
		return
	}
	if err := c.kv.Set(ctx, key, payload, c.ttl); err != nil {
		c.logger.Warn("permission cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}
