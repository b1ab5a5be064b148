package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the aggregate queries against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// MovementCounts groups stock movements by type within the window.
func (r *Repository) MovementCounts(ctx context.Context, companyID int64, from, to time.Time) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT movement_type, COUNT(*)
		FROM stock_movements
		WHERE company_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		GROUP BY movement_type
	`, companyID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			movementType string
			count        int64
		)
		if err := rows.Scan(&movementType, &count); err != nil {
			return nil, err
		}
		counts[movementType] = count
	}
	return counts, rows.Err()
}

// OrderCounts groups sales transactions by status and sums grand totals.
func (r *Repository) OrderCounts(ctx context.Context, companyID int64, from, to time.Time) (map[string]int64, float64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(grand_total), 0)
		FROM sales_transactions
		WHERE company_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY status
	`, companyID, from, to)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	var revenue float64
	for rows.Next() {
		var (
			status string
			count  int64
			total  float64
		)
		if err := rows.Scan(&status, &count, &total); err != nil {
			return nil, 0, err
		}
		counts[status] = count
		revenue += total
	}
	return counts, revenue, rows.Err()
}

// AuditVolume counts audit entries within the window.
func (r *Repository) AuditVolume(ctx context.Context, companyID int64, from, to time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM audit_logs
		WHERE company_id = $1 AND occurred_at >= $2 AND occurred_at < $3
	`, companyID, from, to).Scan(&count)
	return count, err
}

// MetricCount counts KPI metric rows within the window.
func (r *Repository) MetricCount(ctx context.Context, companyID int64, from, to time.Time) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM kpi_metrics
		WHERE company_id = $1 AND calculated_at >= $2 AND calculated_at < $3
	`, companyID, from, to).Scan(&count)
	return count, err
}
