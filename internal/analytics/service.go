package analytics

import (
	"context"
	"fmt"
	"time"
)

// Summary is the aggregate view behind the business-metrics endpoint.
type Summary struct {
	CompanyID       int64            `json:"company_id"`
	Period          string           `json:"period"`
	From            time.Time        `json:"from"`
	To              time.Time        `json:"to"`
	MovementsByType map[string]int64 `json:"movements_by_type"`
	OrdersByStatus  map[string]int64 `json:"orders_by_status"`
	OrderRevenue    float64          `json:"order_revenue"`
	AuditVolume     int64            `json:"audit_volume"`
	MetricsRecorded int64            `json:"metrics_recorded"`
}

// RepositoryPort abstracts the aggregate queries.
type RepositoryPort interface {
	MovementCounts(ctx context.Context, companyID int64, from, to time.Time) (map[string]int64, error)
	OrderCounts(ctx context.Context, companyID int64, from, to time.Time) (map[string]int64, float64, error)
	AuditVolume(ctx context.Context, companyID int64, from, to time.Time) (int64, error)
	MetricCount(ctx context.Context, companyID int64, from, to time.Time) (int64, error)
}

// Service serves cached business metric summaries.
type Service struct {
	repo  RepositoryPort
	cache *Cache
}

// NewService builds Service. cache may be nil.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// PeriodWindow resolves a named period to a concrete [from, to) window ending now.
func PeriodWindow(period string, now time.Time) (time.Time, time.Time, error) {
	now = now.UTC()
	switch period {
	case "daily":
		return now.AddDate(0, 0, -1), now, nil
	case "weekly":
		return now.AddDate(0, 0, -7), now, nil
	case "monthly":
		return now.AddDate(0, -1, 0), now, nil
	case "quarterly":
		return now.AddDate(0, -3, 0), now, nil
	case "yearly":
		return now.AddDate(-1, 0, 0), now, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("analytics: unknown period %q", period)
	}
}

// BusinessMetrics aggregates movement, order, audit and KPI counts for one
// company over a named period, with cache-aware lookups.
func (s *Service) BusinessMetrics(ctx context.Context, companyID int64, period string) (Summary, error) {
	from, to, err := PeriodWindow(period, time.Now())
	if err != nil {
		return Summary{}, err
	}

	loader := func(ctx context.Context) (any, error) {
		movements, err := s.repo.MovementCounts(ctx, companyID, from, to)
		if err != nil {
			return Summary{}, err
		}
		orders, revenue, err := s.repo.OrderCounts(ctx, companyID, from, to)
		if err != nil {
			return Summary{}, err
		}
		auditVolume, err := s.repo.AuditVolume(ctx, companyID, from, to)
		if err != nil {
			return Summary{}, err
		}
		metricCount, err := s.repo.MetricCount(ctx, companyID, from, to)
		if err != nil {
			return Summary{}, err
		}
		return Summary{
			CompanyID:       companyID,
			Period:          period,
			From:            from,
			To:              to,
			MovementsByType: movements,
			OrdersByStatus:  orders,
			OrderRevenue:    revenue,
			AuditVolume:     auditVolume,
			MetricsRecorded: metricCount,
		}, nil
	}

	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return Summary{}, err
		}
		return value.(Summary), nil
	}

	key, err := s.cache.BuildKey(ctx, keySummary(companyID, period))
	if err != nil {
		return Summary{}, err
	}
	var summary Summary
	if err := s.cache.FetchJSON(ctx, key, &summary, loader); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// Invalidate bumps the cache version after bulk writes.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}
