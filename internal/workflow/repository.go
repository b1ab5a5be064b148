package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for process instances.
// Variables and history live in JSONB columns on the instance row.
type Repository struct {
	pool      *pgxpool.Pool
	txTimeout time.Duration
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, txTimeout time.Duration) *Repository {
	return &Repository{pool: pool, txTimeout: txTimeout}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx runs fn inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, r.txTimeout, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const instanceColumns = `id, process_name, current_step, status, variables, history, company_id, created_at, updated_at`

func scanInstance(row pgx.Row) (*ProcessInstance, error) {
	var (
		instance      ProcessInstance
		variablesJSON []byte
		historyJSON   []byte
	)
	err := row.Scan(&instance.ID, &instance.ProcessName, &instance.CurrentStep, &instance.Status,
		&variablesJSON, &historyJSON, &instance.CompanyID, &instance.CreatedAt, &instance.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInstanceNotFound
		}
		return nil, err
	}
	if len(variablesJSON) > 0 {
		if err := json.Unmarshal(variablesJSON, &instance.Variables); err != nil {
			return nil, fmt.Errorf("workflow: decode variables: %w", err)
		}
	}
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &instance.History); err != nil {
			return nil, fmt.Errorf("workflow: decode history: %w", err)
		}
	}
	return &instance, nil
}

func (t *txRepo) GetInstanceForUpdate(ctx context.Context, id uuid.UUID) (*ProcessInstance, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+instanceColumns+` FROM process_instances WHERE id = $1 FOR UPDATE`, id)
	return scanInstance(row)
}

func (t *txRepo) SaveInstance(ctx context.Context, instance *ProcessInstance) error {
	variablesJSON, err := json.Marshal(instance.Variables)
	if err != nil {
		return fmt.Errorf("workflow: encode variables: %w", err)
	}
	historyJSON, err := json.Marshal(instance.History)
	if err != nil {
		return fmt.Errorf("workflow: encode history: %w", err)
	}
	tag, err := t.tx.Exec(ctx, `
		UPDATE process_instances
		SET current_step = $2, status = $3, variables = $4, history = $5, updated_at = $6
		WHERE id = $1
	`, instance.ID, instance.CurrentStep, instance.Status, variablesJSON, historyJSON, instance.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInstanceNotFound
	}
	return nil
}

// GetInstance loads one process instance outside any transaction.
func (r *Repository) GetInstance(ctx context.Context, id uuid.UUID) (*ProcessInstance, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+instanceColumns+` FROM process_instances WHERE id = $1`, id)
	return scanInstance(row)
}

// CreateInstance starts a new process instance.
func (r *Repository) CreateInstance(ctx context.Context, instance *ProcessInstance) error {
	if instance.ID == uuid.Nil {
		instance.ID = uuid.New()
	}
	variablesJSON, err := json.Marshal(instance.Variables)
	if err != nil {
		return fmt.Errorf("workflow: encode variables: %w", err)
	}
	historyJSON, err := json.Marshal(instance.History)
	if err != nil {
		return fmt.Errorf("workflow: encode history: %w", err)
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO process_instances (id, process_name, current_step, status, variables, history, company_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, instance.ID, instance.ProcessName, instance.CurrentStep, instance.Status,
		variablesJSON, historyJSON, instance.CompanyID,
	).Scan(&instance.CreatedAt, &instance.UpdatedAt)
}
