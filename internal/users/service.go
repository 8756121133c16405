package users

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/weighops/weighops/internal/auth"
	"github.com/weighops/weighops/internal/platform/httpx"
)

// Store is the persistence surface the service needs.
type Store interface {
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]User, error)
	Get(ctx context.Context, id uuid.UUID) (User, error)
	Create(ctx context.Context, u User, passwordHash string) (User, error)
	Update(ctx context.Context, id uuid.UUID, name string, roleID uuid.UUID, isActive bool) (User, error)
	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// Service wraps user management rules.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// ListByOrg returns the organization's users.
func (s *Service) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]User, error) {
	return s.store.ListByOrg(ctx, orgID)
}

// Get fetches one user.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return s.store.Get(ctx, id)
}

// Create registers a user with an Argon2id-hashed password.
func (s *Service) Create(ctx context.Context, email, name, password string, roleID, orgID uuid.UUID) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(name) == "" {
		return User{}, httpx.ErrValidation
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, err
	}
	return s.store.Create(ctx, User{
		ID:       uuid.New(),
		Email:    email,
		Name:     strings.TrimSpace(name),
		RoleID:   roleID,
		OrgID:    orgID,
		IsActive: true,
	}, hash)
}

// Update modifies profile fields and role assignment. The role change takes
// effect on the next issued token; permission caches key on the role, not
// the user, so nothing needs invalidating here.
func (s *Service) Update(ctx context.Context, id uuid.UUID, name string, roleID uuid.UUID, isActive bool) (User, error) {
	if strings.TrimSpace(name) == "" {
		return User{}, httpx.ErrValidation
	}
	return s.store.Update(ctx, id, strings.TrimSpace(name), roleID, isActive)
}

// ChangePassword re-hashes and stores a new password.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.store.SetPassword(ctx, id, hash)
}
