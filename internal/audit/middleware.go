package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/weighops/weighops/internal/shared"
)

// EntrySink is where the middleware sends records. *Recorder satisfies it.
type EntrySink interface {
	Record(ctx context.Context, e Entry) error
}

// Middleware records every mutating API request after it completes.
// Reads are not audited. The write happens on a detached context so a
// client disconnect does not lose the trail entry.
func Middleware(sink EntrySink, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			actorID := ""
			if id := shared.IdentityFromContext(r.Context()); id != nil {
				actorID = id.UserID
			}
			entry := Entry{
				ActorID:  actorID,
				Action:   r.Method,
				Entity:   entityFromPath(r.URL.Path),
				EntityID: r.URL.Path,
				Meta:     map[string]any{"status": rec.status},
			}

			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
			defer cancel()
			if err := sink.Record(ctx, entry); err != nil {
				logger.Error("audit record failed",
					slog.String("path", r.URL.Path),
					slog.Any("error", err),
				)
			}
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// entityFromPath extracts the collection segment from an API path, e.g.
// /api/v1/roles/42 -> roles.
func entityFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if part == "v1" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "unknown"
}
