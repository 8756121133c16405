package authz

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/weighops/weighops/internal/shared"
)

// Outcome is the two-valued, terminal result of one authorization attempt.
type Outcome int

const (
	// OutcomeFailed denies the attempt.
	OutcomeFailed Outcome = iota
	// OutcomeSucceeded allows the attempt.
	OutcomeSucceeded
)

// DecisionObserver counts decisions per policy. Outcome is "granted" or
// "denied".
type DecisionObserver interface {
	ObserveDecision(policy, outcome string)
}

// Authorizer is the decision point: it evaluates a requirement against the
// request context and collapses every failure mode into a deny. Nothing
// below this boundary propagates an error into the request pipeline, except
// context cancellation, which must not resolve to a decision at all.
type Authorizer struct {
	verifier *Verifier
	registry *Registry
	logger   *slog.Logger
	observer DecisionObserver
}

// NewAuthorizer constructs an Authorizer around a verifier and a policy
// registry.
func NewAuthorizer(verifier *Verifier, registry *Registry, logger *slog.Logger) *Authorizer {
	return &Authorizer{verifier: verifier, registry: registry, logger: logger}
}

// WithObserver attaches a decision counter.
func (a *Authorizer) WithObserver(observer DecisionObserver) *Authorizer {
	a.observer = observer
	return a
}

// Registry exposes the policy registry for registration-time wiring.
func (a *Authorizer) Registry() *Registry {
	return a.registry
}

// Decide evaluates one requirement. The returned error is non-nil only when
// the surrounding request was cancelled; authorization faults never escape,
// they are logged and forced to OutcomeFailed.
func (a *Authorizer) Decide(ctx context.Context, req Requirement) (Outcome, error) {
	id := shared.IdentityFromContext(ctx)
	if id == nil {
		a.logger.Warn("authorization denied: no request identity",
			slog.Any("codes", req.Codes))
		return OutcomeFailed, nil
	}
	if !id.Authenticated() {
		a.logger.Warn("authorization denied: unauthenticated caller",
			slog.Any("codes", req.Codes))
		return OutcomeFailed, nil
	}

	var ok bool
	var err error
	switch req.Type {
	case RequireAll:
		ok, err = a.verifier.HasAll(ctx, req.Codes...)
	case RequireAny:
		ok, err = a.verifier.HasAny(ctx, req.Codes...)
	default:
		// Unreachable with the closed two-value enum; denied anyway.
		a.logger.Error("authorization denied: unknown requirement type",
			slog.String("user_id", callerID(id)),
			slog.Int("type", int(req.Type)))
		return OutcomeFailed, nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return OutcomeFailed, ctxErr
		}
		a.logger.Error("authorization denied: check failed",
			slog.String("user_id", callerID(id)),
			slog.Any("codes", req.Codes),
			slog.Any("error", err))
		return OutcomeFailed, nil
	}
	if !ok {
		a.logger.Warn("authorization denied",
			slog.String("user_id", callerID(id)),
			slog.Any("codes", req.Codes),
			slog.String("mode", req.Type.String()))
		return OutcomeFailed, nil
	}
	a.logger.Info("authorization granted",
		slog.String("user_id", callerID(id)),
		slog.Any("codes", req.Codes))
	return OutcomeSucceeded, nil
}

// Require declares a single-permission policy on a route subtree. The policy
// is registered at route-registration time; invalid codes are configuration
// errors and abort startup.
func (a *Authorizer) Require(code string) func(http.Handler) http.Handler {
	policy, err := NewSinglePermissionPolicy(code)
	if err != nil {
		panic(fmt.Sprintf("authz: invalid permission declaration: %v", err))
	}
	a.mustRegister(policy)
	return a.enforce(policy.Name)
}

// RequireAnyOf declares an OR policy on a route subtree.
func (a *Authorizer) RequireAnyOf(codes ...string) func(http.Handler) http.Handler {
	policy, err := NewAnyPermissionPolicy(codes...)
	if err != nil {
		panic(fmt.Sprintf("authz: invalid permission declaration: %v", err))
	}
	a.mustRegister(policy)
	return a.enforce(policy.Name)
}

// RequireAllOf declares an AND policy on a route subtree.
func (a *Authorizer) RequireAllOf(codes ...string) func(http.Handler) http.Handler {
	policy, err := NewAllPermissionsPolicy(codes...)
	if err != nil {
		panic(fmt.Sprintf("authz: invalid permission declaration: %v", err))
	}
	a.mustRegister(policy)
	return a.enforce(policy.Name)
}

// RequirePolicy enforces an already-registered policy by name.
func (a *Authorizer) RequirePolicy(name string) func(http.Handler) http.Handler {
	if _, ok := a.registry.Lookup(name); !ok {
		panic(fmt.Sprintf("authz: policy %q is not registered", name))
	}
	return a.enforce(name)
}

func (a *Authorizer) observe(policy, outcome string) {
	if a.observer != nil {
		a.observer.ObserveDecision(policy, outcome)
	}
}

func (a *Authorizer) mustRegister(policy Policy) {
	if err := a.registry.Register(policy); err != nil {
		panic(fmt.Sprintf("authz: register policy: %v", err))
	}
}

// enforce resolves the named policy per request and maps the decision onto
// the response: unauthenticated callers get 401, denied callers 403. An
// internal fault is indistinguishable from a legitimate denial on the wire.
func (a *Authorizer) enforce(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			policy, ok := a.registry.Lookup(name)
			if !ok {
				a.logger.Error("authorization denied: unknown policy", slog.String("policy", name))
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			id := shared.IdentityFromContext(r.Context())
			if !id.Authenticated() {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			// A policy holds; every requirement must individually succeed.
			for _, req := range policy.Requirements {
				outcome, err := a.Decide(r.Context(), req)
				if err != nil {
					// Request cancelled; there is no decision to write.
					return
				}
				if outcome != OutcomeSucceeded {
					a.observe(name, "denied")
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
			}
			a.observe(name, "granted")
			next.ServeHTTP(w, r)
		})
	}
}
