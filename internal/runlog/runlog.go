// Package runlog keeps a per-invocation audit row in Postgres so operators
// can answer "was this report dispatched, and how did it go" without digging
// through logs. The pipeline works fine without it; every method is a no-op
// on a nil receiver.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/HussainShah1551/gp-codebuild/internal/pipeline"
	"github.com/HussainShah1551/gp-codebuild/internal/pkg/logger"
)

// RunLog records pipeline invocations in the gp_run_log table.
type RunLog struct {
	db *sql.DB
}

// New creates a run log on an open database handle.
func New(db *sql.DB) *RunLog {
	return &RunLog{db: db}
}

// EnsureSchema applies the idempotent table definition.
func (r *RunLog) EnsureSchema(ctx context.Context) error {
	if r == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS gp_run_log (
			run_id        TEXT PRIMARY KEY,
			bucket        TEXT NOT NULL,
			object_key    TEXT NOT NULL,
			status        TEXT NOT NULL,
			rows_in       INTEGER NOT NULL DEFAULT 0,
			rows_kept     INTEGER NOT NULL DEFAULT 0,
			jobs_queued   INTEGER NOT NULL DEFAULT 0,
			jobs_failed   INTEGER NOT NULL DEFAULT 0,
			marker_written BOOLEAN NOT NULL DEFAULT FALSE,
			error_message TEXT,
			started_at    TIMESTAMPTZ NOT NULL,
			finished_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("ensure gp_run_log schema: %w", err)
	}
	return nil
}

// Record inserts one finished run. Failures are logged, never propagated:
// the run log must not turn a dispatched run into a failed one.
func (r *RunLog) Record(ctx context.Context, res pipeline.Result, startedAt time.Time) {
	if r == nil {
		return
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO gp_run_log
			(run_id, bucket, object_key, status, rows_in, rows_kept,
			 jobs_queued, jobs_failed, marker_written, error_message, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11)
		ON CONFLICT (run_id) DO NOTHING`,
		res.RunID, res.Bucket, res.Key, string(res.Status),
		res.RowsIn, res.RowsKept, res.JobsQueued, res.JobsFailed,
		res.MarkerWritten, res.Error, startedAt,
	)
	if err != nil {
		logger.Error("run log insert failed", "run_id", res.RunID, "err", err)
	}
}

// LastStatus returns the most recent recorded status for an object key, or
// "" when the key has never been processed.
func (r *RunLog) LastStatus(ctx context.Context, bucket, key string) (string, error) {
	if r == nil {
		return "", nil
	}
	var status string
	err := r.db.QueryRowContext(ctx, `
		SELECT status FROM gp_run_log
		WHERE bucket = $1 AND object_key = $2
		ORDER BY finished_at DESC
		LIMIT 1`, bucket, key).Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query last status: %w", err)
	}
	return status, nil
}
