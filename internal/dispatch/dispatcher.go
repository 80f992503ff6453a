// Package dispatch fans the assembled report out: one audit email to the
// administrative address, then one queued notification job per employee.
package dispatch

import (
	"context"

	"github.com/HussainShah1551/gp-codebuild/internal/pkg/logger"
)

// Dispatcher sequences the two side effects of a pipeline run. The audit
// copy must land before any per-employee job is queued; job failures are
// tolerated per recipient.
type Dispatcher struct {
	mailer Mailer
	queue  JobQueue

	// replacement, when non-empty, overrides every recipient address.
	// Staging affordance; wired only through explicit configuration.
	replacement string
}

// NewDispatcher creates a dispatcher. replacement must be "" in production.
func NewDispatcher(mailer Mailer, queue JobQueue, replacement string) *Dispatcher {
	return &Dispatcher{mailer: mailer, queue: queue, replacement: replacement}
}

// Run sends the audit copy, then enqueues the jobs. Returns queued/failed
// counts; a non-nil error means the audit send failed and nothing was queued.
func (d *Dispatcher) Run(ctx context.Context, attachmentName string, artifact []byte, jobs []EmailJob) (queued, failed int, err error) {
	if err := d.mailer.SendAuditCopy(ctx, attachmentName, artifact); err != nil {
		return 0, 0, err
	}

	for _, job := range jobs {
		if job.Email == "" {
			// Counted in the artifact, just not notified.
			continue
		}
		if d.replacement != "" {
			job.Email = d.replacement
		}
		if err := d.queue.Enqueue(ctx, job); err != nil {
			logger.Error("enqueue email job failed", "email", job.Email, "err", err)
			failed++
			continue
		}
		logger.Debug("queued email job", "email", job.Email, "check_ins", job.CheckIns)
		queued++
	}

	return queued, failed, nil
}
