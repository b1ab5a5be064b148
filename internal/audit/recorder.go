package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the slice of pgx used by the recorder; *pgxpool.Pool satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Recorder writes entries into audit_logs. Record is the strict form;
// Append is the best-effort contract every business operation relies on.
type Recorder struct {
	db          Execer
	logger      *slog.Logger
	maxAttempts int
	backoff     time.Duration
}

// NewRecorder returns a Recorder with bounded background retry.
func NewRecorder(db Execer, logger *slog.Logger) *Recorder {
	return &Recorder{db: db, logger: logger, maxAttempts: 3, backoff: 250 * time.Millisecond}
}

// Record persists the entry, returning any persistence error to the caller.
func (r *Recorder) Record(ctx context.Context, entry Entry) error {
	if r == nil || r.db == nil {
		return errors.New("audit: recorder not initialised")
	}
	if entry.Action == "" || entry.Entity == "" || entry.EntityID == "" {
		return ErrInvalidEntry
	}
	if entry.Severity == "" {
		entry.Severity = SeverityInfo
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	prevJSON, err := json.Marshal(entry.PreviousState)
	if err != nil {
		return err
	}
	newJSON, err := json.Marshal(entry.NewState)
	if err != nil {
		return err
	}
	changesJSON, err := json.Marshal(entry.Changes)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO audit_logs
(action, entity, entity_id, actor_id, previous_state, new_state, changes, severity, company_id, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.Action, entry.Entity, entry.EntityID, entry.ActorID,
		prevJSON, newJSON, changesJSON, string(entry.Severity), entry.CompanyID, entry.OccurredAt)
	return err
}

// Append writes the entry without ever failing the caller. A persistence
// error is logged and retried in the background with backoff; after the
// final attempt the entry is dropped. Cancellation of the caller's context
// does not cancel the write.
func (r *Recorder) Append(ctx context.Context, entry Entry) {
	if r == nil {
		return
	}
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	err := r.Record(writeCtx, entry)
	cancel()
	if err == nil {
		return
	}
	if errors.Is(err, ErrInvalidEntry) {
		r.logger.Warn("audit entry rejected", slog.Any("error", err), slog.String("action", entry.Action))
		return
	}
	r.logger.Warn("audit write failed, scheduling retry",
		slog.Any("error", err),
		slog.String("action", entry.Action),
		slog.String("entity", entry.Entity))
	go r.retry(entry)
}

func (r *Recorder) retry(entry Entry) {
	delay := r.backoff
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		time.Sleep(delay)
		delay *= 2
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := r.Record(ctx, entry)
		cancel()
		if err == nil {
			return
		}
		if attempt == r.maxAttempts {
			r.logger.Error("audit entry dropped after retries",
				slog.Any("error", err),
				slog.String("action", entry.Action),
				slog.String("entity", entry.Entity),
				slog.String("entity_id", entry.EntityID))
		}
	}
}
