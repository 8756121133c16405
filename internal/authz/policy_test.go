package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyNameRoundTrip(t *testing.T) {
	single, err := NewSinglePermissionPolicy("x")
	require.NoError(t, err)
	assert.Equal(t, "Permission:x", single.Name)

	anyPolicy, err := NewAnyPermissionPolicy("a", "b")
	require.NoError(t, err)
	assert.Equal(t, "Permission:Any:a|b", anyPolicy.Name)
	require.Len(t, anyPolicy.Requirements, 1)
	assert.Equal(t, RequireAny, anyPolicy.Requirements[0].Type)

	allPolicy, err := NewAllPermissionsPolicy("x")
	require.NoError(t, err)
	assert.Equal(t, "Permission:All:x", allPolicy.Name)
	require.Len(t, allPolicy.Requirements, 1)
	assert.Equal(t, RequireAll, allPolicy.Requirements[0].Type)
}

func TestPolicyNamePreservesCallerOrder(t *testing.T) {
	p1, err := NewAnyPermissionPolicy("b", "a")
	require.NoError(t, err)
	p2, err := NewAnyPermissionPolicy("a", "b")
	require.NoError(t, err)
	assert.NotEqual(t, p1.Name, p2.Name)
}

func TestPolicyConstructionRejectsBlankCodes(t *testing.T) {
	_, err := NewSinglePermissionPolicy("")
	assert.Error(t, err)

	_, err = NewSinglePermissionPolicy("   ")
	assert.Error(t, err)

	_, err = NewAnyPermissionPolicy()
	assert.ErrorIs(t, err, ErrEmptyCodes)

	_, err = NewAllPermissionsPolicy("a", "")
	assert.Error(t, err)
}

func TestSingleCodeDefaultsToAll(t *testing.T) {
	req, err := NewSingleRequirement("weighing.create")
	require.NoError(t, err)
	assert.Equal(t, RequireAll, req.Type)
	assert.Equal(t, []string{"weighing.create"}, req.Codes)
}

func TestNamedPolicy(t *testing.T) {
	req, err := NewRequirement(RequireAll, "a")
	require.NoError(t, err)

	policy, err := NewNamedPolicy("StationOperator", req)
	require.NoError(t, err)
	assert.Equal(t, "StationOperator", policy.Name)

	_, err = NewNamedPolicy("  ", req)
	assert.Error(t, err)

	_, err = NewNamedPolicy("NoRequirements")
	assert.Error(t, err)
}

func TestNamedPolicyComposesAsConjunction(t *testing.T) {
	anyReq, err := NewRequirement(RequireAny, "a", "b")
	require.NoError(t, err)
	allReq, err := NewRequirement(RequireAll, "c")
	require.NoError(t, err)

	policy, err := NewNamedPolicy("Composite", anyReq, allReq)
	require.NoError(t, err)

	// Both requirements survive unchanged; the Any clause must not be
	// widened by the codes of the All clause.
	require.Len(t, policy.Requirements, 2)
	assert.Equal(t, RequireAny, policy.Requirements[0].Type)
	assert.Equal(t, []string{"a", "b"}, policy.Requirements[0].Codes)
	assert.Equal(t, RequireAll, policy.Requirements[1].Type)
	assert.Equal(t, []string{"c"}, policy.Requirements[1].Codes)
}

func TestNamedPolicyDoesNotMutateCallerRequirements(t *testing.T) {
	// The first requirement's slice has spare capacity; construction must
	// not write through it into the caller's backing array.
	backing := []string{"a", "untouched"}
	first := Requirement{Codes: backing[:1], Type: RequireAll}
	second := Requirement{Codes: []string{"b"}, Type: RequireAll}

	_, err := NewNamedPolicy("Composite", first, second)
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, first.Codes)
	assert.Equal(t, "untouched", backing[1])
}

func TestRegistryIdempotentRegistration(t *testing.T) {
	reg := NewRegistry()
	policy, err := NewSinglePermissionPolicy("weighing.create")
	require.NoError(t, err)

	require.NoError(t, reg.Register(policy))
	require.NoError(t, reg.Register(policy))

	got, ok := reg.Lookup("Permission:weighing.create")
	require.True(t, ok)
	assert.Equal(t, policy.Requirements, got.Requirements)
}

func TestRegistryRejectsConflictingRequirement(t *testing.T) {
	reg := NewRegistry()
	first, err := NewNamedPolicy("Conflict", Requirement{Codes: []string{"a"}, Type: RequireAll})
	require.NoError(t, err)
	second, err := NewNamedPolicy("Conflict", Requirement{Codes: []string{"b"}, Type: RequireAll})
	require.NoError(t, err)

	require.NoError(t, reg.Register(first))
	assert.Error(t, reg.Register(second))
}
