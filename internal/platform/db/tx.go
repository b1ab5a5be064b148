package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// DefaultTxTimeout bounds the lifetime of a storage transaction so a stalled
// caller cannot hold row locks indefinitely.
const DefaultTxTimeout = 10 * time.Second

// WithTx executes fn within a RepeatableRead transaction bounded by timeout.
// Serialization failures and deadlocks are surfaced as
// shared.ErrTransactionConflict so callers can retry.
func WithTx(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration, fn func(pgx.Tx) error) error {
	if timeout <= 0 {
		timeout = DefaultTxTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return ClassifyError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return ClassifyError(fmt.Errorf("platform/db: commit tx: %w", err))
	}

	return nil
}

// ClassifyError maps PostgreSQL write-conflict failures to the retryable
// shared.ErrTransactionConflict sentinel. Other errors pass through.
func ClassifyError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %s", shared.ErrTransactionConflict, pgErr.Code)
		}
	}
	return err
}
