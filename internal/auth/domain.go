package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Account is the credential view of a user, as needed for login.
type Account struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	RoleID       uuid.UUID
	OrgID        uuid.UUID
	IsActive     bool
	CreatedAt    time.Time
}

// Repository looks up accounts for authentication.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
}
