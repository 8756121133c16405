package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/weighops/weighops/internal/shared"
)

// Middleware parses the Authorization header and attaches the caller
// identity plus a fresh per-request permission memo to the context. Requests
// without a valid bearer token pass through unauthenticated; the
// authorization layer denies them if the route is protected.
func Middleware(tokens *TokenManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.ContextWithPermissionMemo(r.Context(), &shared.PermissionMemo{})

			if token := bearerToken(r); token != "" {
				claims, err := tokens.Verify(token)
				if err != nil {
					logger.Warn("bearer token rejected", slog.Any("error", err))
				} else {
					ctx = shared.ContextWithIdentity(ctx, &shared.Identity{
						UserID: claims.Subject,
						RoleID: claims.RoleID,
						OrgID:  claims.OrgID,
						Name:   claims.Name,
					})
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
