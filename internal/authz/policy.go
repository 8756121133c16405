package authz

import (
	"errors"
	"fmt"
	"strings"
)

// Policy name grammar. Names are lookup keys: they must be reproducible from
// the same codes in the same order. Codes must not contain '|'.
const (
	policyPrefix    = "Permission:"
	policyAnyPrefix = "Permission:Any:"
	policyAllPrefix = "Permission:All:"
	codeSeparator   = "|"
)

// Policy is a named, registered authorization rule. Every policy carries an
// implicit authenticated-caller precondition plus one or more requirements,
// all of which must hold.
type Policy struct {
	Name         string
	Requirements []Requirement
}

// SinglePermissionPolicyName formats the name for a one-code policy.
func SinglePermissionPolicyName(code string) string {
	return policyPrefix + code
}

// AnyPermissionPolicyName formats the name for an OR policy.
func AnyPermissionPolicyName(codes ...string) string {
	return policyAnyPrefix + strings.Join(codes, codeSeparator)
}

// AllPermissionsPolicyName formats the name for an AND policy.
func AllPermissionsPolicyName(codes ...string) string {
	return policyAllPrefix + strings.Join(codes, codeSeparator)
}

// NewSinglePermissionPolicy builds a policy requiring one permission.
func NewSinglePermissionPolicy(code string) (Policy, error) {
	req, err := NewSingleRequirement(code)
	if err != nil {
		return Policy{}, err
	}
	return Policy{Name: SinglePermissionPolicyName(req.Codes[0]), Requirements: []Requirement{req}}, nil
}

// NewAnyPermissionPolicy builds a policy satisfied by any listed permission.
func NewAnyPermissionPolicy(codes ...string) (Policy, error) {
	req, err := NewRequirement(RequireAny, codes...)
	if err != nil {
		return Policy{}, err
	}
	return Policy{Name: AnyPermissionPolicyName(req.Codes...), Requirements: []Requirement{req}}, nil
}

// NewAllPermissionsPolicy builds a policy demanding every listed permission.
func NewAllPermissionsPolicy(codes ...string) (Policy, error) {
	req, err := NewRequirement(RequireAll, codes...)
	if err != nil {
		return Policy{}, err
	}
	return Policy{Name: AllPermissionsPolicyName(req.Codes...), Requirements: []Requirement{req}}, nil
}

// NewNamedPolicy builds a policy under a caller-supplied name, for composing
// permission checks with other authorization rules. Every supplied
// requirement must hold independently: an Any requirement keeps its OR
// semantics within itself, but composing it with further requirements never
// widens them.
func NewNamedPolicy(name string, requirements ...Requirement) (Policy, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Policy{}, errors.New("authz: policy name must not be blank")
	}
	if len(requirements) == 0 {
		return Policy{}, errors.New("authz: policy requires at least one requirement")
	}
	reqs := make([]Requirement, 0, len(requirements))
	for _, req := range requirements {
		if len(req.Codes) == 0 {
			return Policy{}, ErrEmptyCodes
		}
		reqs = append(reqs, req)
	}
	return Policy{Name: name, Requirements: reqs}, nil
}

// Registry maps policy names to policies. It is populated once during route
// registration and read-only afterwards, so lookups need no locking.
type Registry struct {
	policies map[string]Policy
}

// NewRegistry constructs an empty policy registry.
func NewRegistry() *Registry {
	return &Registry{policies: make(map[string]Policy)}
}

// Register adds a policy. Re-registering the same name is idempotent; the
// same routes are commonly declared with the same permission set.
func (r *Registry) Register(p Policy) error {
	if p.Name == "" {
		return errors.New("authz: cannot register unnamed policy")
	}
	if len(p.Requirements) == 0 {
		return fmt.Errorf("authz: policy %q has no requirements", p.Name)
	}
	if existing, ok := r.policies[p.Name]; ok {
		if !equalRequirementLists(existing.Requirements, p.Requirements) {
			return fmt.Errorf("authz: policy %q already registered with a different requirement", p.Name)
		}
		return nil
	}
	r.policies[p.Name] = p
	return nil
}

// Lookup resolves a policy by name.
func (r *Registry) Lookup(name string) (Policy, bool) {
	p, ok := r.policies[name]
	return p, ok
}

// Names returns all registered policy names, for diagnostics.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	return names
}

func equalRequirementLists(a, b []Requirement) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalRequirements(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalRequirements(a, b Requirement) bool {
	if a.Type != b.Type || len(a.Codes) != len(b.Codes) {
		return false
	}
	for i := range a.Codes {
		if a.Codes[i] != b.Codes[i] {
			return false
		}
	}
	return true
}
