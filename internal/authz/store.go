package authz

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the narrow read interface over persisted permissions. The
// permissions package provides the PostgreSQL implementation; the engine
// never writes through it.
type Store interface {
	ByID(ctx context.Context, id uuid.UUID) (Permission, error)
	ByCode(ctx context.Context, code string) (Permission, error)
	ByCategory(ctx context.Context, category string) ([]Permission, error)
	All(ctx context.Context) ([]Permission, error)
	AllActive(ctx context.Context) ([]Permission, error)
	ForRole(ctx context.Context, roleID uuid.UUID) ([]Permission, error)
}

// KV is the generic key-value surface the permission cache depends on.
// Payloads are opaque bytes with per-key TTLs; the engine assumes nothing
// about the backing technology.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
