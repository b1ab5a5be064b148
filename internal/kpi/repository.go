package kpi

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists KPI metrics in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertMetric writes one metric row.
func (r *Repository) InsertMetric(ctx context.Context, m KPIMetric) (int64, error) {
	query := `
		INSERT INTO kpi_metrics (
			metric_name, category, value, target, unit, period,
			period_start, period_end, calculation_method, company_id, calculated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query,
		m.MetricName, m.Category, m.Value, m.Target, m.Unit, m.Period,
		m.PeriodStart, m.PeriodEnd, m.CalculationMethod, m.CompanyID, m.CalculatedAt,
	).Scan(&id)
	return id, err
}

// ListMetrics returns metrics newest first.
func (r *Repository) ListMetrics(ctx context.Context, filter ListFilter) ([]KPIMetric, error) {
	where := []string{"company_id = $1"}
	args := []any{filter.CompanyID}
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if filter.Period != "" {
		add("period = $%d", filter.Period)
	}
	if !filter.From.IsZero() {
		add("calculated_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("calculated_at <= $%d", filter.To)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT id, metric_name, category, value, target, unit, period,
period_start, period_end, calculation_method, company_id, calculated_at
FROM kpi_metrics
WHERE %s
ORDER BY calculated_at DESC, id DESC
LIMIT $%d`, strings.Join(where, " AND "), len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []KPIMetric
	for rows.Next() {
		var m KPIMetric
		if err := rows.Scan(&m.ID, &m.MetricName, &m.Category, &m.Value, &m.Target, &m.Unit, &m.Period,
			&m.PeriodStart, &m.PeriodEnd, &m.CalculationMethod, &m.CompanyID, &m.CalculatedAt); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}
