package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/weighops/weighops/internal/audit"
)

// AuditRetentionJob prunes audit trail entries past the retention window.
type AuditRetentionJob struct {
	Recorder  *audit.Recorder
	Retention time.Duration
	Logger    *slog.Logger
	clock     func() time.Time
}

// NewAuditRetentionJob wires dependencies for the retention handler.
func NewAuditRetentionJob(recorder *audit.Recorder, retention time.Duration, logger *slog.Logger) *AuditRetentionJob {
	return &AuditRetentionJob{
		Recorder:  recorder,
		Retention: retention,
		Logger:    logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes audit retention tasks.
func (j *AuditRetentionJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Recorder == nil {
		return errors.New("audit retention: handler not configured")
	}
	var payload AuditRetentionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	retention := j.Retention
	if payload.RetentionHours > 0 {
		retention = time.Duration(payload.RetentionHours) * time.Hour
	}
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}

	cutoff := j.now().Add(-retention)
	removed, err := j.Recorder.Prune(ctx, cutoff)
	if err != nil {
		j.logger().Error("prune audit trail", slog.Any("error", err))
		return err
	}
	j.logger().Info("pruned audit trail",
		slog.Time("cutoff", cutoff),
		slog.Int64("removed", removed),
	)
	return nil
}

func (j *AuditRetentionJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAuditRetention))
	}
	return slog.Default().With(slog.String("job", TaskAuditRetention))
}

func (j *AuditRetentionJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
