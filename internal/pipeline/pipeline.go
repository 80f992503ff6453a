// Package pipeline runs one attendance report from raw S3 artifact to
// dispatched notifications: fetch, normalize, filter, compute tiers,
// assemble, distribute, mark complete.
package pipeline

import (
	"bytes"
	"context"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/HussainShah1551/gp-codebuild/internal/dispatch"
	"github.com/HussainShah1551/gp-codebuild/internal/pkg/logger"
	"github.com/HussainShah1551/gp-codebuild/internal/report"
	"github.com/HussainShah1551/gp-codebuild/internal/store"
	"github.com/HussainShah1551/gp-codebuild/internal/tier"
)

// Status classifies the outcome of one pipeline invocation.
type Status string

const (
	// StatusSucceeded: artifact dispatched, all jobs queued, marker written.
	StatusSucceeded Status = "succeeded"
	// StatusDegraded: artifact dispatched, but the marker write or at least
	// one job enqueue failed. Data went out; idempotency or coverage is not
	// guaranteed.
	StatusDegraded Status = "degraded"
	// StatusFailed: the input could not be processed or the audit copy could
	// not be sent. Nothing was queued and no marker was written.
	StatusFailed Status = "failed"
)

// Result is the operator-visible outcome of one run.
type Result struct {
	RunID         string `json:"run_id"`
	Bucket        string `json:"bucket"`
	Key           string `json:"key"`
	Status        Status `json:"status"`
	RowsIn        int    `json:"rows_in"`
	RowsKept      int    `json:"rows_kept"`
	JobsQueued    int    `json:"jobs_queued"`
	JobsFailed    int    `json:"jobs_failed"`
	MarkerWritten bool   `json:"marker_written"`
	Error         string `json:"error,omitempty"`

	// Err carries the underlying failure for callers; Error mirrors it for
	// serialization.
	Err error `json:"-"`
}

// WindowMode selects the billing-period filter applied to incoming reports.
type WindowMode string

const (
	WindowNone          WindowMode = "none"
	WindowPreviousMonth WindowMode = "previous-month"
)

// Options configures a Pipeline.
type Options struct {
	WindowMode     WindowMode
	ExcludeHeaders []string // nil means the default exclusion list
	// Now is the clock used to derive the billing window. Nil means time.Now.
	Now func() time.Time
}

// Pipeline wires the pure transform to its collaborators.
type Pipeline struct {
	store      store.ObjectStore
	dispatcher *dispatch.Dispatcher
	calc       *tier.Calculator
	opts       Options
}

// New creates a pipeline.
func New(st store.ObjectStore, d *dispatch.Dispatcher, calc *tier.Calculator, opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.WindowMode == "" {
		opts.WindowMode = WindowPreviousMonth
	}
	return &Pipeline{store: st, dispatcher: d, calc: calc, opts: opts}
}

// Run processes one input artifact end to end. It never panics on bad row
// data; only input errors and audit-send failures are fatal.
func (p *Pipeline) Run(ctx context.Context, bucket, key string) Result {
	res := Result{RunID: uuid.New().String(), Bucket: bucket, Key: key}
	logger.Info("pipeline run starting", "run_id", res.RunID, "bucket", bucket, "key", key)

	raw, err := p.store.Fetch(ctx, bucket, key)
	if err != nil {
		return p.fail(res, err)
	}

	rep, err := report.Parse(bytes.NewReader(raw))
	if err != nil {
		return p.fail(res, err)
	}
	res.RowsIn = len(rep.Records)

	filter := report.Filter{RequireActive: true}
	if p.opts.WindowMode == WindowPreviousMonth {
		w := report.PreviousMonth(p.opts.Now())
		filter.Window = &w
		logger.Info("billing window",
			"start", w.Start.Format("2006-01-02"), "end", w.End.Format("2006-01-02"))
	}
	kept := filter.Apply(rep.Records)
	res.RowsKept = len(kept)

	// Tier annotation and job construction share one computation per record.
	jobs := make([]dispatch.EmailJob, 0, len(kept))
	for _, rec := range kept {
		t := p.calc.Compute(rec.CheckIns, rec.Identity)
		rec.Deduction = t.Deduction
		jobs = append(jobs, dispatch.EmailJob{
			Email:    rec.Email,
			Name:     rec.Identity,
			Subject:  t.Subject,
			Body:     t.Body,
			CheckIns: rec.CheckIns,
		})
	}

	artifact, err := report.Assemble(rep.Headers, kept, report.AssembleOptions{
		ExcludeHeaders: p.opts.ExcludeHeaders,
	})
	if err != nil {
		return p.fail(res, err)
	}

	queued, failed, err := p.dispatcher.Run(ctx, path.Base(key), artifact, jobs)
	if err != nil {
		// Audit copy is the source of truth; without it nothing goes out.
		return p.fail(res, err)
	}
	res.JobsQueued = queued
	res.JobsFailed = failed

	if err := p.store.WriteMarker(ctx, bucket, key); err != nil {
		logger.Error("marker write failed", "key", key, "err", err)
		res.Err = err
		res.Error = err.Error()
	} else {
		res.MarkerWritten = true
	}

	if res.MarkerWritten && res.JobsFailed == 0 {
		res.Status = StatusSucceeded
	} else {
		res.Status = StatusDegraded
	}

	logger.Info("pipeline run finished",
		"run_id", res.RunID, "status", string(res.Status),
		"rows_in", res.RowsIn, "rows_kept", res.RowsKept,
		"jobs_queued", res.JobsQueued, "jobs_failed", res.JobsFailed)
	return res
}

func (p *Pipeline) fail(res Result, err error) Result {
	res.Status = StatusFailed
	res.Err = err
	res.Error = err.Error()
	logger.Error("pipeline run failed", "run_id", res.RunID, "key", res.Key, "err", err)
	return res
}
