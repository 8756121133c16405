package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgTimelineStore reads the audit trail from Postgres.
type PgTimelineStore struct {
	pool *pgxpool.Pool
}

// NewPgTimelineStore constructs a PgTimelineStore.
func NewPgTimelineStore(pool *pgxpool.Pool) *PgTimelineStore {
	return &PgTimelineStore{pool: pool}
}

const timelineQuery = `
	SELECT a.occurred_at, coalesce(u.name, coalesce(a.actor_id::text, 'system')), a.action, a.entity, coalesce(a.entity_id, ''), a.meta
	FROM audit_logs a
	LEFT JOIN users u ON u.id = a.actor_id
	WHERE ($1::timestamptz IS NULL OR a.occurred_at >= $1)
	  AND ($2::timestamptz IS NULL OR a.occurred_at <= $2)
	  AND ($3::text IS NULL OR coalesce(u.name, a.actor_id::text) ILIKE '%' || $3 || '%')
	  AND ($4::text IS NULL OR a.entity = $4)
	  AND ($5::text IS NULL OR a.action = $5)
	ORDER BY a.occurred_at DESC`

func (r *PgTimelineStore) TimelineWindow(ctx context.Context, f TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, timelineQuery+` LIMIT $6 OFFSET $7`,
		nullTime(f.From), nullTime(f.To), nullText(f.Actor), nullText(f.Entity), nullText(f.Action), limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("audit timeline window: %w", err)
	}
	defer rows.Close()
	return collectRows(rows)
}

func (r *PgTimelineStore) TimelineAll(ctx context.Context, f TimelineFilters) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, timelineQuery,
		nullTime(f.From), nullTime(f.To), nullText(f.Actor), nullText(f.Entity), nullText(f.Action),
	)
	if err != nil {
		return nil, fmt.Errorf("audit timeline all: %w", err)
	}
	defer rows.Close()
	return collectRows(rows)
}

func collectRows(rows pgx.Rows) ([]TimelineRow, error) {
	out := make([]TimelineRow, 0)
	for rows.Next() {
		var row TimelineRow
		var meta []byte
		if err := rows.Scan(&row.At, &row.Actor, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &row.Meta)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func nullText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
