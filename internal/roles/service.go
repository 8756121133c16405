// Package roles manages roles and their permission grants. Grant and revoke
// operations invalidate the role's cached permission set as part of the same
// logical operation.
package roles

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/weighops/weighops/internal/authz"
)

// Store is the persistence surface the service needs.
type Store interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id uuid.UUID) (Role, error)
	CreateRole(ctx context.Context, name, description string) (Role, error)
	UpdateRole(ctx context.Context, id uuid.UUID, name, description string) (Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error
	PermissionIDs(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error)
	ActivePermissionIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	Attach(ctx context.Context, roleID, permissionID uuid.UUID) error
	Detach(ctx context.Context, roleID, permissionID uuid.UUID) error
}

// Service orchestrates role operations.
type Service struct {
	store  Store
	cache  *authz.PermissionCache
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(store Store, cache *authz.PermissionCache, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, logger: logger}
}

// List returns all roles.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

// Get fetches one role.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Role, error) {
	return s.store.GetRole(ctx, id)
}

// Permissions returns the role's granted permissions via the cached path.
func (s *Service) Permissions(ctx context.Context, id uuid.UUID) ([]authz.Permission, error) {
	return s.cache.ForRole(ctx, id)
}

// Create inserts a new role.
func (s *Service) Create(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("roles: role name required")
	}
	return s.store.CreateRole(ctx, name, strings.TrimSpace(description))
}

// Update modifies an existing role.
func (s *Service) Update(ctx context.Context, id uuid.UUID, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("roles: role name required")
	}
	return s.store.UpdateRole(ctx, id, name, strings.TrimSpace(description))
}

// Delete removes a role and drops its cached permission set.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.invalidateRole(ctx, id)
	return nil
}

// SetPermissions reconciles the role's grants to exactly the given set.
// Inactive permissions are dropped from the request: they are not
// grant-eligible. The role's cached permission set is invalidated in the
// same logical operation, at-least-once.
func (s *Service) SetPermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	if _, err := s.store.GetRole(ctx, roleID); err != nil {
		return err
	}
	eligible := permissionIDs
	if len(permissionIDs) > 0 {
		var err error
		eligible, err = s.store.ActivePermissionIDs(ctx, permissionIDs)
		if err != nil {
			return err
		}
	}

	current, err := s.store.PermissionIDs(ctx, roleID)
	if err != nil {
		return err
	}
	existing := make(map[uuid.UUID]struct{}, len(current))
	for _, id := range current {
		existing[id] = struct{}{}
	}
	keep := make(map[uuid.UUID]struct{}, len(eligible))
	for _, id := range eligible {
		keep[id] = struct{}{}
		if _, ok := existing[id]; !ok {
			if err := s.store.Attach(ctx, roleID, id); err != nil {
				return err
			}
		}
	}
	for id := range existing {
		if _, ok := keep[id]; !ok {
			if err := s.store.Detach(ctx, roleID, id); err != nil {
				return err
			}
		}
	}

	s.invalidateRole(ctx, roleID)
	return nil
}

func (s *Service) invalidateRole(ctx context.Context, roleID uuid.UUID) {
	if err := s.cache.InvalidateRole(ctx, roleID); err != nil {
		s.logger.Warn("role permission cache invalidation failed",
			slog.String("role_id", roleID.String()), slog.Any("error", err))
	}
}
