package auth

import (
	"context"

	"github.com/weighops/weighops/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	tokens *TokenManager
}

// NewService constructs a new Service.
func NewService(repo Repository, tokens *TokenManager) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Authenticate validates email/password credentials. Every failure mode maps
// to ErrInvalidCredentials so callers cannot probe which part failed.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Account, error) {
	acc, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return Account{}, shared.ErrInvalidCredentials
	}
	if !acc.IsActive {
		return Account{}, shared.ErrInvalidCredentials
	}
	ok, err := VerifyPassword(password, acc.PasswordHash)
	if err != nil || !ok {
		return Account{}, shared.ErrInvalidCredentials
	}
	return acc, nil
}

// IssueToken signs an access token for an authenticated account.
func (s *Service) IssueToken(acc Account) (string, error) {
	return s.tokens.Issue(acc.ID, acc.RoleID, acc.OrgID, acc.Name)
}
