package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry represents a record stored in audit_logs.
type Entry struct {
	ActorID  string
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// Recorder writes entries into audit_logs.
type Recorder struct {
	pool *pgxpool.Pool
}

// NewRecorder returns a new Recorder.
func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

// Record persists the entry.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	if r == nil {
		return errors.New("audit recorder not initialised")
	}
	if e.Action == "" || e.Entity == "" {
		return errors.New("audit entry requires action/entity")
	}
	metaJSON, err := json.Marshal(e.Meta)
	if err != nil {
		return err
	}
	var at *time.Time
	if !e.At.IsZero() {
		at = &e.At
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES (nullif($1, '')::uuid, $2, $3, $4, $5, COALESCE($6, NOW()))`, e.ActorID, e.Action, e.Entity, e.EntityID, metaJSON, at)
	return err
}

// Prune deletes entries older than the retention window and returns how
// many rows were removed.
func (r *Recorder) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("prune audit logs: %w", err)
	}
	return tag.RowsAffected(), nil
}
