package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/weighops/weighops/internal/authz"
)

// PermissionWarmupJob pre-populates the permission cache so the first
// authorization checks after a deploy or cache flush hit Redis.
type PermissionWarmupJob struct {
	Cache  *authz.PermissionCache
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	clock  func() time.Time
}

// NewPermissionWarmupJob wires dependencies for the warmup handler.
func NewPermissionWarmupJob(cache *authz.PermissionCache, pool *pgxpool.Pool, logger *slog.Logger) *PermissionWarmupJob {
	return &PermissionWarmupJob{
		Cache:  cache,
		Pool:   pool,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes permission warmup tasks.
func (j *PermissionWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Cache == nil {
		return errors.New("permission warmup: handler not configured")
	}
	var payload PermissionWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger()
	start := j.now()
	logger.Info("starting permission warmup", slog.Bool("include_roles", payload.IncludeRoles))

	active, err := j.Cache.AllActive(ctx)
	if err != nil {
		logger.Error("warm active permissions", slog.Any("error", err))
		return err
	}
	if _, err := j.Cache.All(ctx); err != nil {
		logger.Error("warm full catalog", slog.Any("error", err))
		return err
	}

	roles := 0
	if payload.IncludeRoles {
		ids, err := j.fetchRoleIDs(ctx)
		if err != nil {
			logger.Error("load role ids", slog.Any("error", err))
			return err
		}
		for _, id := range ids {
			if _, err := j.Cache.ForRole(ctx, id); err != nil {
				logger.Error("warm role", slog.String("role_id", id.String()), slog.Any("error", err))
				return err
			}
			roles++
		}
	}

	logger.Info("completed permission warmup",
		slog.Int("active_permissions", len(active)),
		slog.Int("roles", roles),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *PermissionWarmupJob) fetchRoleIDs(ctx context.Context) ([]uuid.UUID, error) {
	if j.Pool == nil {
		return nil, errors.New("permission warmup: pool not configured")
	}
	rows, err := j.Pool.Query(ctx, `SELECT id FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (j *PermissionWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPermissionWarmup))
	}
	return slog.Default().With(slog.String("job", TaskPermissionWarmup))
}

func (j *PermissionWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
