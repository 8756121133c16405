package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPermissionWarmup pre-populates the permission cache.
	TaskPermissionWarmup = "perm:warmup"
	// TaskAuditRetention prunes expired audit trail entries.
	TaskAuditRetention = "audit:retention"
)

// PermissionWarmupPayload selects which aggregates to warm.
type PermissionWarmupPayload struct {
	// IncludeRoles also pre-loads the per-role permission sets.
	IncludeRoles bool `json:"include_roles"`
}

// NewPermissionWarmupTask constructs an Asynq task.
func NewPermissionWarmupTask(payload PermissionWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPermissionWarmup, data), nil
}

// AuditRetentionPayload overrides the configured retention window.
type AuditRetentionPayload struct {
	// RetentionHours keeps entries younger than this many hours.
	// Zero falls back to the worker's configured default.
	RetentionHours int `json:"retention_hours"`
}

// NewAuditRetentionTask constructs an Asynq task.
func NewAuditRetentionTask(payload AuditRetentionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRetention, data), nil
}
