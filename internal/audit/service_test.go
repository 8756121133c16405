package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTimelineStore struct {
	rows       []TimelineRow
	lastLimit  int
	lastOffset int
	lastFilter TimelineFilters
}

func (s *stubTimelineStore) TimelineWindow(_ context.Context, f TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	s.lastFilter = f
	s.lastLimit = limit
	s.lastOffset = offset
	if limit < len(s.rows) {
		return s.rows[:limit], nil
	}
	return s.rows, nil
}

func (s *stubTimelineStore) TimelineAll(_ context.Context, f TimelineFilters) ([]TimelineRow, error) {
	s.lastFilter = f
	return s.rows, nil
}

func row(at string, actor, action, entity string) TimelineRow {
	t, _ := time.Parse(time.RFC3339, at)
	return TimelineRow{At: t, Actor: actor, Action: action, Entity: entity}
}

func TestTimelinePaging(t *testing.T) {
	store := &stubTimelineStore{rows: []TimelineRow{
		row("2026-08-10T10:00:00Z", "ops@example.com", "PUT", "roles"),
		row("2026-08-09T09:00:00Z", "ops@example.com", "POST", "stations"),
		row("2026-08-08T08:00:00Z", "ops@example.com", "POST", "shifts"),
	}}
	svc := NewService(store)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 2})
	require.NoError(t, err)

	assert.Len(t, result.Rows, 2)
	assert.True(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.NextPage)
	assert.Zero(t, result.Paging.PrevPage)
	// One extra row is requested to detect the next page.
	assert.Equal(t, 3, store.lastLimit)
	assert.Equal(t, 0, store.lastOffset)
}

func TestTimelineLastPage(t *testing.T) {
	store := &stubTimelineStore{rows: []TimelineRow{
		row("2026-08-10T10:00:00Z", "ops@example.com", "PUT", "roles"),
	}}
	svc := NewService(store)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 20})
	require.NoError(t, err)

	assert.False(t, result.Paging.HasNext)
	assert.Equal(t, 1, result.Paging.PrevPage)
	assert.Equal(t, 20, store.lastOffset)
}

func TestTimelineClampsPageSize(t *testing.T) {
	store := &stubTimelineStore{}
	svc := NewService(store)

	_, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 51, store.lastLimit)

	_, err = svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	assert.Equal(t, 21, store.lastLimit)
}

func TestTimelineTrimsFilters(t *testing.T) {
	store := &stubTimelineStore{}
	svc := NewService(store)

	_, err := svc.Timeline(context.Background(), TimelineFilters{Actor: "  ops  ", Entity: " roles "})
	require.NoError(t, err)
	assert.Equal(t, "ops", store.lastFilter.Actor)
	assert.Equal(t, "roles", store.lastFilter.Entity)
}

func TestExportReturnsAllRows(t *testing.T) {
	store := &stubTimelineStore{rows: []TimelineRow{
		row("2026-08-10T10:00:00Z", "a", "POST", "orgs"),
		row("2026-08-09T09:00:00Z", "b", "PUT", "users"),
	}}
	svc := NewService(store)

	rows, err := svc.Export(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestWriteCSV(t *testing.T) {
	rows := []TimelineRow{
		{At: time.Date(2026, 8, 10, 10, 0, 0, 0, time.UTC), Actor: "ops", Action: "POST", Entity: "roles", EntityID: "/api/v1/roles", Meta: map[string]any{"status": 201}},
	}
	out, err := CSVExporter{}.WriteCSV(rows)
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "occurred_at,actor,action,entity,entity_id,meta")
	assert.Contains(t, text, "2026-08-10T10:00:00Z,ops,POST,roles,/api/v1/roles")
	assert.Contains(t, text, `status`)
}
