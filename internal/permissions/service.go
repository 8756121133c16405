// Package permissions manages the permission catalog: storage, the cached
// read path consumed by the authorization engine, and the administrative
// mutations that keep the cache coherent.
package permissions

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/weighops/weighops/internal/authz"
	"github.com/weighops/weighops/internal/platform/httpx"
)

// Writer is the mutation surface of the catalog repository.
type Writer interface {
	Create(ctx context.Context, p authz.Permission) (authz.Permission, error)
	Update(ctx context.Context, p authz.Permission) (authz.Permission, error)
	Deactivate(ctx context.Context, code string) error
}

// Service orchestrates catalog operations. Reads go through the permission
// cache; every mutation invalidates the affected cache entries as part of
// the same logical operation.
type Service struct {
	repo   Writer
	cache  *authz.PermissionCache
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Writer, cache *authz.PermissionCache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// List returns all permissions, optionally only active ones.
func (s *Service) List(ctx context.Context, activeOnly bool) ([]authz.Permission, error) {
	if activeOnly {
		return s.cache.AllActive(ctx)
	}
	return s.cache.All(ctx)
}

// ListByCategory returns permissions within one category.
func (s *Service) ListByCategory(ctx context.Context, category string) ([]authz.Permission, error) {
	return s.cache.ByCategory(ctx, category)
}

// GetByCode returns one permission by its stable code.
func (s *Service) GetByCode(ctx context.Context, code string) (authz.Permission, error) {
	return s.cache.ByCode(ctx, code)
}

// Create inserts a permission and sweeps the aggregate cache entries.
func (s *Service) Create(ctx context.Context, code, name, category, description string) (authz.Permission, error) {
	code = strings.TrimSpace(code)
	if code == "" || strings.Contains(code, "|") {
		return authz.Permission{}, httpx.ErrValidation
	}
	created, err := s.repo.Create(ctx, authz.Permission{
		ID:          uuid.New(),
		Code:        code,
		Name:        strings.TrimSpace(name),
		Category:    strings.TrimSpace(category),
		Description: strings.TrimSpace(description),
		IsActive:    true,
	})
	if err != nil {
		return authz.Permission{}, err
	}
	s.invalidate(ctx, created.Code)
	return created, nil
}

// Update modifies a permission and invalidates its cache entries.
func (s *Service) Update(ctx context.Context, code, name, category, description string, isActive bool) (authz.Permission, error) {
	updated, err := s.repo.Update(ctx, authz.Permission{
		Code:        code,
		Name:        strings.TrimSpace(name),
		Category:    strings.TrimSpace(category),
		Description: strings.TrimSpace(description),
		IsActive:    isActive,
	})
	if err != nil {
		return authz.Permission{}, err
	}
	s.invalidate(ctx, code)
	return updated, nil
}

// Deactivate retires a permission from grant eligibility and active queries.
func (s *Service) Deactivate(ctx context.Context, code string) error {
	if err := s.repo.Deactivate(ctx, code); err != nil {
		return err
	}
	s.invalidate(ctx, code)
	return nil
}

// invalidate is at-least-once: a failed invalidation is logged and the TTL
// bounds the staleness window.
func (s *Service) invalidate(ctx context.Context, code string) {
	if err := s.cache.Invalidate(ctx, code); err != nil {
		s.logger.Warn("permission cache invalidation failed",
			slog.String("code", code), slog.Any("error", err))
	}
}
