package authz

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/weighops/weighops/internal/shared"
)

// Verifier answers permission queries for the current request's caller. It
// resolves the caller's permission set at most once per request via the
// per-request memo, falling back to the distributed cache and the store.
type Verifier struct {
	cache  *PermissionCache
	logger *slog.Logger
}

// NewVerifier constructs a Verifier.
func NewVerifier(cache *PermissionCache, logger *slog.Logger) *Verifier {
	return &Verifier{cache: cache, logger: logger}
}

// UserPermissions resolves the caller's permission codes. A missing or
// unparseable role claim yields the empty set, as does any cache/store fault:
// the ultimate effect is a deny either way, so availability wins over
// surfacing a secondary error. Context cancellation is the one exception and
// propagates.
func (v *Verifier) UserPermissions(ctx context.Context) ([]string, error) {
	memo := shared.PermissionMemoFromContext(ctx)
	if codes, ok := memo.Get(); ok {
		return codes, nil
	}

	codes := v.resolve(ctx)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	memo.Store(codes)
	return codes, nil
}

func (v *Verifier) resolve(ctx context.Context) []string {
	id := shared.IdentityFromContext(ctx)
	if id == nil || id.RoleID == "" {
		return []string{}
	}
	roleID, err := uuid.Parse(id.RoleID)
	if err != nil {
		v.logger.Warn("role claim is not a valid identifier",
			slog.String("user_id", callerID(id)),
			slog.String("role_id", id.RoleID))
		return []string{}
	}

	perms, err := v.cache.ForRole(ctx, roleID)
	if err != nil {
		if ctx.Err() == nil {
			v.logger.Error("resolve role permissions failed",
				slog.String("role_id", roleID.String()),
				slog.Any("error", err))
		}
		return []string{}
	}
	codes := make([]string, 0, len(perms))
	for _, p := range perms {
		codes = append(codes, p.Code)
	}
	return codes
}

// HasPermission reports whether the caller holds one permission.
func (v *Verifier) HasPermission(ctx context.Context, code string) (bool, error) {
	return v.HasAll(ctx, code)
}

// HasAny reports whether the caller holds at least one of the codes. An
// empty code list is a caller contract violation.
func (v *Verifier) HasAny(ctx context.Context, codes ...string) (bool, error) {
	if len(codes) == 0 {
		return false, ErrEmptyCodes
	}
	granted, err := v.UserPermissions(ctx)
	if err != nil {
		return false, err
	}
	set := foldSet(granted)
	ok := false
	for _, code := range codes {
		if _, member := set[foldCode(code)]; member {
			ok = true
			break
		}
	}
	v.logCheck(ctx, "any", codes, ok)
	return ok, nil
}

// HasAll reports whether the caller holds every code. An empty code list is
// a caller contract violation.
func (v *Verifier) HasAll(ctx context.Context, codes ...string) (bool, error) {
	if len(codes) == 0 {
		return false, ErrEmptyCodes
	}
	granted, err := v.UserPermissions(ctx)
	if err != nil {
		return false, err
	}
	set := foldSet(granted)
	ok := true
	for _, code := range codes {
		if _, member := set[foldCode(code)]; !member {
			ok = false
			break
		}
	}
	v.logCheck(ctx, "all", codes, ok)
	return ok, nil
}

func (v *Verifier) logCheck(ctx context.Context, mode string, codes []string, ok bool) {
	v.logger.Info("permission check",
		slog.String("user_id", callerID(shared.IdentityFromContext(ctx))),
		slog.String("mode", mode),
		slog.Any("codes", codes),
		slog.Bool("granted", ok))
}

func callerID(id *shared.Identity) string {
	if id == nil || id.UserID == "" {
		return "unknown"
	}
	return id.UserID
}

// Permission codes compare case-insensitively using Unicode case folding.
// cases.Caser is stateful, so a fresh one is taken per use.
func foldCode(code string) string {
	return cases.Fold().String(code)
}

func foldSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		set[foldCode(code)] = struct{}{}
	}
	return set
}
