package analytics

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	movementCalls int
	orderCalls    int
	auditCalls    int
	metricCalls   int
}

func (m *mockRepo) MovementCounts(ctx context.Context, companyID int64, from, to time.Time) (map[string]int64, error) {
	m.movementCalls++
	return map[string]int64{"in": 12, "out": 30, "adjustment": 2}, nil
}

func (m *mockRepo) OrderCounts(ctx context.Context, companyID int64, from, to time.Time) (map[string]int64, float64, error) {
	m.orderCalls++
	return map[string]int64{"draft": 4, "completed": 9}, 15250.75, nil
}

func (m *mockRepo) AuditVolume(ctx context.Context, companyID int64, from, to time.Time) (int64, error) {
	m.auditCalls++
	return 57, nil
}

func (m *mockRepo) MetricCount(ctx context.Context, companyID int64, from, to time.Time) (int64, error) {
	m.metricCalls++
	return 6, nil
}

func newTestService(t *testing.T, repo RepositoryPort) (*Service, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	svc := NewService(repo, cache)
	return svc, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestBusinessMetricsCaches(t *testing.T) {
	repo := &mockRepo{}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()
	ctx := context.Background()

	summary, err := svc.BusinessMetrics(ctx, 3, "monthly")
	require.NoError(t, err)
	require.Equal(t, int64(3), summary.CompanyID)
	require.Equal(t, int64(30), summary.MovementsByType["out"])
	require.Equal(t, int64(9), summary.OrdersByStatus["completed"])
	require.InDelta(t, 15250.75, summary.OrderRevenue, 0.0001)
	require.Equal(t, int64(57), summary.AuditVolume)
	require.Equal(t, int64(6), summary.MetricsRecorded)

	// Second read is served from cache.
	_, err = svc.BusinessMetrics(ctx, 3, "monthly")
	require.NoError(t, err)
	require.Equal(t, 1, repo.movementCalls)
	require.Equal(t, 1, repo.orderCalls)
}

func TestBusinessMetricsBumpInvalidates(t *testing.T) {
	repo := &mockRepo{}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()
	ctx := context.Background()

	_, err := svc.BusinessMetrics(ctx, 1, "weekly")
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(ctx))

	_, err = svc.BusinessMetrics(ctx, 1, "weekly")
	require.NoError(t, err)
	require.Equal(t, 2, repo.movementCalls)
}

func TestBusinessMetricsUnknownPeriod(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, nil)

	_, err := svc.BusinessMetrics(context.Background(), 1, "fortnightly")
	require.Error(t, err)
	require.Zero(t, repo.movementCalls)
}

func TestBusinessMetricsWithoutCache(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.BusinessMetrics(ctx, 1, "daily")
	require.NoError(t, err)
	_, err = svc.BusinessMetrics(ctx, 1, "daily")
	require.NoError(t, err)
	require.Equal(t, 2, repo.movementCalls)
}

func TestPeriodWindow(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	from, to, err := PeriodWindow("weekly", now)
	require.NoError(t, err)
	require.Equal(t, now, to)
	require.Equal(t, now.AddDate(0, 0, -7), from)

	_, _, err = PeriodWindow("", now)
	require.Error(t, err)
}
