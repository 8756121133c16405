package shared

import (
	"context"
	"sync"
)

// Identity describes the authenticated caller extracted from a bearer token.
type Identity struct {
	UserID string
	RoleID string
	OrgID  string
	Name   string
}

// Authenticated reports whether the identity belongs to a known user.
func (id *Identity) Authenticated() bool {
	return id != nil && id.UserID != ""
}

// PermissionMemo caches the caller's resolved permission codes for the
// lifetime of a single request. It is attached to the request context by the
// auth middleware and never shared across requests.
type PermissionMemo struct {
	mu     sync.Mutex
	codes  []string
	loaded bool
}

// Get returns the memoized permission codes and whether they were resolved.
func (m *PermissionMemo) Get() ([]string, bool) {
	if m == nil {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes, m.loaded
}

// Store records the resolved permission codes for the rest of the request.
func (m *PermissionMemo) Store(codes []string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes = codes
	m.loaded = true
}

type identityContextKey struct{}

type permMemoContextKey struct{}

// ContextWithIdentity stores the caller identity in context.
func ContextWithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the caller identity from context.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityContextKey{}).(*Identity)
	return id
}

// ContextWithPermissionMemo attaches a fresh per-request permission cache.
func ContextWithPermissionMemo(ctx context.Context, memo *PermissionMemo) context.Context {
	return context.WithValue(ctx, permMemoContextKey{}, memo)
}

// PermissionMemoFromContext extracts the per-request permission cache.
func PermissionMemoFromContext(ctx context.Context) *PermissionMemo {
	memo, _ := ctx.Value(permMemoContextKey{}).(*PermissionMemo)
	return memo
}
