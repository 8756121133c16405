// Package authz implements permission-based authorization: declarative
// permission requirements, named policies, a distributed permission cache
// and the fail-closed decision handler consumed by the HTTP pipeline.
package authz

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates that the requested permission does not exist.
var ErrNotFound = errors.New("authz: permission not found")

// ErrEmptyCodes indicates a caller supplied no permission codes where at
// least one is required. This is a contract violation, not a runtime state.
var ErrEmptyCodes = errors.New("authz: permission codes must not be empty")

// Permission represents an atomic, grantable capability.
type Permission struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// RolePermission ties a permission to a role.
type RolePermission struct {
	RoleID       uuid.UUID `json:"role_id"`
	PermissionID uuid.UUID `json:"permission_id"`
	AssignedAt   time.Time `json:"assigned_at"`
}

// RequirementType selects how a requirement's codes combine.
type RequirementType int

const (
	// RequireAll demands every listed permission.
	RequireAll RequirementType = iota
	// RequireAny demands at least one listed permission.
	RequireAny
)

// String names the requirement type for logs.
func (t RequirementType) String() string {
	switch t {
	case RequireAll:
		return "all"
	case RequireAny:
		return "any"
	default:
		return "unknown"
	}
}

// Requirement is the data a policy checks against a caller's permissions:
// an ordered, non-empty list of codes plus the AND/OR combination mode.
type Requirement struct {
	Codes []string
	Type  RequirementType
}

// NewRequirement validates and builds a Requirement. Blank codes are a
// configuration error and are rejected up front, never at request time.
func NewRequirement(typ RequirementType, codes ...string) (Requirement, error) {
	if len(codes) == 0 {
		return Requirement{}, ErrEmptyCodes
	}
	cleaned := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			return Requirement{}, errors.New("authz: permission code must not be blank")
		}
		cleaned = append(cleaned, code)
	}
	return Requirement{Codes: cleaned, Type: typ}, nil
}

// NewSingleRequirement builds a Requirement for one code. A single code
// defaults to RequireAll, which is equivalent to requiring that code.
func NewSingleRequirement(code string) (Requirement, error) {
	return NewRequirement(RequireAll, code)
}
