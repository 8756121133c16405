package users

import (
	"time"

	"github.com/google/uuid"
)

// User is a platform account belonging to one organization with one role.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	RoleID    uuid.UUID `json:"role_id"`
	OrgID     uuid.UUID `json:"org_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
