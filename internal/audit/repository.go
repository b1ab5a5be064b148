package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads audit_logs from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Window returns entries matching filters ordered newest first.
func (r *Repository) Window(ctx context.Context, filters TimelineFilters, limit, offset int) ([]Entry, error) {
	where := []string{"company_id = $1"}
	args := []any{filters.CompanyID}

	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filters.Entity != "" {
		add("entity = $%d", filters.Entity)
	}
	if filters.Action != "" {
		add("action = $%d", filters.Action)
	}
	if filters.Severity != "" {
		add("severity = $%d", string(filters.Severity))
	}
	if !filters.From.IsZero() {
		add("occurred_at >= $%d", filters.From)
	}
	if !filters.To.IsZero() {
		add("occurred_at <= $%d", filters.To)
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(`SELECT id, action, entity, entity_id, actor_id, previous_state, new_state, changes, severity, company_id, occurred_at
FROM audit_logs
WHERE %s
ORDER BY occurred_at DESC, id DESC
LIMIT $%d OFFSET $%d`, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                           Entry
			prevRaw, newRaw, changesRaw []byte
			severity                    string
			at                          time.Time
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.Entity, &e.EntityID, &e.ActorID,
			&prevRaw, &newRaw, &changesRaw, &severity, &e.CompanyID, &at); err != nil {
			return nil, err
		}
		e.Severity = Severity(severity)
		e.OccurredAt = at
		if len(prevRaw) > 0 {
			_ = json.Unmarshal(prevRaw, &e.PreviousState)
		}
		if len(newRaw) > 0 {
			_ = json.Unmarshal(newRaw, &e.NewState)
		}
		if len(changesRaw) > 0 {
			_ = json.Unmarshal(changesRaw, &e.Changes)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
