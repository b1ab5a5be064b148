package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryTimeline struct {
	entries []Entry
}

func (m *memoryTimeline) Window(ctx context.Context, filters TimelineFilters, limit, offset int) ([]Entry, error) {
	if offset >= len(m.entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.entries) {
		end = len(m.entries)
	}
	return m.entries[offset:end], nil
}

func seedEntries(n int) []Entry {
	entries := make([]Entry, n)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range entries {
		entries[i] = Entry{
			ID:         int64(n - i),
			Action:     "ledger:in",
			Entity:     "product",
			EntityID:   "1",
			CompanyID:  1,
			OccurredAt: base.Add(-time.Duration(i) * time.Minute),
		}
	}
	return entries
}

func TestTimelinePaging(t *testing.T) {
	repo := &memoryTimeline{entries: seedEntries(25)}
	svc := NewService(repo)
	ctx := context.Background()

	result, err := svc.Timeline(ctx, TimelineFilters{CompanyID: 1, Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, result.Rows, 10)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Zero(t, result.Paging.PrevPage)

	result, err = svc.Timeline(ctx, TimelineFilters{CompanyID: 1, Page: 3, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, result.Rows, 5)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.PrevPage)
}

func TestTimelineDefaultsAndClamp(t *testing.T) {
	repo := &memoryTimeline{entries: seedEntries(150)}
	svc := NewService(repo)
	ctx := context.Background()

	result, err := svc.Timeline(ctx, TimelineFilters{CompanyID: 1})
	require.NoError(t, err)
	require.Len(t, result.Rows, 20)
	require.Equal(t, 1, result.Paging.Page)

	result, err = svc.Timeline(ctx, TimelineFilters{CompanyID: 1, PageSize: 500})
	require.NoError(t, err)
	require.Len(t, result.Rows, 100)
	require.Equal(t, 100, result.Paging.PageSize)
}
