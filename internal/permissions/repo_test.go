package permissions

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/weighops/weighops/internal/shared"
)

func TestMapUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "permissions_code_key"}
	assert.ErrorIs(t, mapUniqueViolation(dup), shared.ErrDuplicate)

	// The driver error may arrive wrapped.
	assert.ErrorIs(t, mapUniqueViolation(fmt.Errorf("create permission: %w", dup)), shared.ErrDuplicate)

	other := &pgconn.PgError{Code: "23503"}
	assert.NotErrorIs(t, mapUniqueViolation(other), shared.ErrDuplicate)

	plain := errors.New("connection reset")
	assert.Equal(t, plain, mapUniqueViolation(plain))
}
